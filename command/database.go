package command

import (
	"encoding/json"
	"errors"
)

// Execution parameter keys shared between the queue specialization and the
// commands it accepts.
const (
	ParamDatabase      = "database"
	ParamResultFactory = "results"
)

// Database is the adapter contract consumed by database commands. The adapter
// is only ever touched by the executor goroutine, so implementations need not
// be re-entrant.
type Database interface {
	// CreateDatabase creates a new database.
	CreateDatabase(name string) error
	// ConnectTo opens a connection to the named database. Fails when a
	// connection is already open.
	ConnectTo(name string) error
	// ExecuteQuery runs a query with named parameters against the connected
	// database and returns an opaque row set.
	ExecuteQuery(query string, parameters map[string]any) (any, error)
	// Disconnect closes the open connection. Fails when not connected.
	Disconnect() error
}

// ResultFactory builds the per-operation result shapes. A factory is passed
// through the execution parameters so command code never constructs JSON
// shapes directly.
type ResultFactory interface {
	SuccessCreatingDatabase(databaseName string) Result
	FailureCreatingDatabase(databaseName, errorMessage string) Result
	SuccessConnecting(databaseName string) Result
	FailureConnecting(databaseName, errorMessage string) Result
	SuccessQuerying(query string, parameters map[string]any, output any) Result
	FailureQuerying(query string, parameters map[string]any, output any, errorMessage string) Result
	SuccessDisconnecting(databaseName string) Result
	FailureDisconnecting(databaseName, errorMessage string) Result
	// Failure is the synthetic result for a payload that errored outside the
	// command's own handling.
	Failure(errorMessage string) Result
}

// NewResultFactory returns the standard JSON result factory.
func NewResultFactory() ResultFactory {
	return jsonResultFactory{}
}

type jsonResultFactory struct{}

func (jsonResultFactory) SuccessCreatingDatabase(databaseName string) Result {
	return &databaseNameResult{databaseName: databaseName, successful: true}
}

func (jsonResultFactory) FailureCreatingDatabase(databaseName, errorMessage string) Result {
	return &databaseNameResult{databaseName: databaseName, errorMessage: errorMessage}
}

func (jsonResultFactory) SuccessConnecting(databaseName string) Result {
	return &databaseNameResult{databaseName: databaseName, successful: true}
}

func (jsonResultFactory) FailureConnecting(databaseName, errorMessage string) Result {
	return &databaseNameResult{databaseName: databaseName, errorMessage: errorMessage}
}

func (jsonResultFactory) SuccessQuerying(query string, parameters map[string]any, output any) Result {
	return &queryResult{query: query, parameters: parameters, output: output, successful: true}
}

func (jsonResultFactory) FailureQuerying(query string, parameters map[string]any, output any, errorMessage string) Result {
	return &queryResult{query: query, parameters: parameters, output: output, errorMessage: errorMessage}
}

func (jsonResultFactory) SuccessDisconnecting(databaseName string) Result {
	return &databaseNameResult{databaseName: databaseName, successful: true}
}

func (jsonResultFactory) FailureDisconnecting(databaseName, errorMessage string) Result {
	return &databaseNameResult{databaseName: databaseName, errorMessage: errorMessage}
}

func (jsonResultFactory) Failure(errorMessage string) Result {
	return &failureResult{errorMessage: errorMessage}
}

// databaseNameResult covers the create, connect and disconnect shapes.
type databaseNameResult struct {
	databaseName string
	errorMessage string
	successful   bool
}

func (r *databaseNameResult) JSONString() (string, error) {
	fields := map[string]any{
		"version":       resultVersion,
		"is_successful": r.successful,
		"database_name": r.databaseName,
	}
	if !r.successful {
		fields["error_message"] = r.errorMessage
	}
	return marshalResult(fields)
}

type queryResult struct {
	query        string
	parameters   map[string]any
	output       any
	errorMessage string
	successful   bool
}

func (r *queryResult) JSONString() (string, error) {
	fields := map[string]any{
		"version":       resultVersion,
		"is_successful": r.successful,
		"query":         r.query,
		"parameters":    r.parameters,
		"output":        r.output,
	}
	if !r.successful {
		fields["error_message"] = r.errorMessage
	}
	return marshalResult(fields)
}

type failureResult struct {
	errorMessage string
}

func (r *failureResult) JSONString() (string, error) {
	return marshalResult(map[string]any{
		"version":       resultVersion,
		"is_successful": false,
		"error_message": r.errorMessage,
	})
}

func marshalResult(fields map[string]any) (string, error) {
	out, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// executionContext extracts the adapter and result factory from the execution
// parameters supplied by the queue specialization.
func executionContext(params map[string]any) (Database, ResultFactory, error) {
	db, ok := params[ParamDatabase].(Database)
	if !ok {
		return nil, nil, errors.New("execution parameters missing database adapter")
	}
	results, ok := params[ParamResultFactory].(ResultFactory)
	if !ok {
		return nil, nil, errors.New("execution parameters missing result factory")
	}
	return db, results, nil
}

// CreateDatabase creates a new database when executed.
type CreateDatabase struct {
	databaseName string
}

func NewCreateDatabase(databaseName string) *CreateDatabase {
	return &CreateDatabase{databaseName: databaseName}
}

func (c *CreateDatabase) Execute(params map[string]any) (any, error) {
	db, results, err := executionContext(params)
	if err != nil {
		return nil, err
	}
	if err := db.CreateDatabase(c.databaseName); err != nil {
		return results.FailureCreatingDatabase(c.databaseName, err.Error()), nil
	}
	return results.SuccessCreatingDatabase(c.databaseName), nil
}

// ExecuteQuery connects to a database, runs a single query and disconnects.
// Each step yields a child result; a failing step short-circuits the rest.
type ExecuteQuery struct {
	databaseName string
	query        string
	parameters   map[string]any
}

func NewExecuteQuery(databaseName, query string, parameters map[string]any) *ExecuteQuery {
	return &ExecuteQuery{databaseName: databaseName, query: query, parameters: parameters}
}

func (c *ExecuteQuery) Execute(params map[string]any) (any, error) {
	db, results, err := executionContext(params)
	if err != nil {
		return nil, err
	}

	var (
		children   []Result
		output     any
		successful = true
	)

	if err := db.ConnectTo(c.databaseName); err != nil {
		successful = false
		children = append(children, results.FailureConnecting(c.databaseName, err.Error()))
	} else {
		children = append(children, results.SuccessConnecting(c.databaseName))
	}

	if successful {
		out, err := db.ExecuteQuery(c.query, c.parameters)
		if err != nil {
			successful = false
			children = append(children, results.FailureQuerying(c.query, c.parameters, out, err.Error()))
		} else {
			output = out
			children = append(children, results.SuccessQuerying(c.query, c.parameters, out))
		}
	}

	if successful {
		if err := db.Disconnect(); err != nil {
			successful = false
			children = append(children, results.FailureDisconnecting(c.databaseName, err.Error()))
		} else {
			children = append(children, results.SuccessDisconnecting(c.databaseName))
		}
	}

	return &ExecuteQueryResult{
		CompositeResult: NewCompositeResult(successful, children),
		output:          output,
	}, nil
}

// ExecuteQueryResult is the composite outcome of an ExecuteQuery command.
type ExecuteQueryResult struct {
	*CompositeResult
	output any
}

// TryOutput returns the query's row set when every step succeeded.
func (r *ExecuteQueryResult) TryOutput() (any, bool) {
	if !r.Successful() {
		return nil, false
	}
	return r.output, true
}
