// Package entrypoint parses API entry-point JSON into executable database
// commands. Requests carry a version, an entry-point kind and the kind's
// properties; property lookups report the missing property name on failure.
package entrypoint

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/austinhellerrepo/postgresapi/command"
	"github.com/austinhellerrepo/postgresapi/queue"
)

// Type identifies an API entry point.
type Type int

const (
	TypeUnknown Type = iota
	TypeCreateDatabase
	TypeInsertRecord
	TypeGetRecord
	TypeGetRecords
	TypeUpdateRecord
	TypeDeleteRecord
	TypeDeleteRecords
)

var typeNames = map[Type]string{
	TypeCreateDatabase: "create_database",
	TypeInsertRecord:   "insert_record",
	TypeGetRecord:      "get_record",
	TypeGetRecords:     "get_records",
	TypeUpdateRecord:   "update_record",
	TypeDeleteRecord:   "delete_record",
	TypeDeleteRecords:  "delete_records",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseType resolves an entry-point name.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("unknown entry point %q", name)
}

// SupportedVersion is the only entry-point version currently served.
const SupportedVersion = 1

// PropertyNotFoundError reports a JSON property missing from a request.
type PropertyNotFoundError struct {
	JSON     string
	Property string
}

func (e *PropertyNotFoundError) Error() string {
	return fmt.Sprintf("property %q does not exist in json", e.Property)
}

// PropertyValue walks the property path through nested JSON objects.
func PropertyValue(jsonText string, propertyNames ...string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(jsonText), &value); err != nil {
		return nil, fmt.Errorf("invalid request json: %w", err)
	}
	for _, name := range propertyNames {
		object, ok := value.(map[string]any)
		if !ok {
			return nil, &PropertyNotFoundError{JSON: jsonText, Property: name}
		}
		value, ok = object[name]
		if !ok {
			return nil, &PropertyNotFoundError{JSON: jsonText, Property: name}
		}
	}
	return value, nil
}

func stringProperty(jsonText string, propertyNames ...string) (string, error) {
	value, err := PropertyValue(jsonText, propertyNames...)
	if err != nil {
		return "", err
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("property %q is not a string", propertyNames[len(propertyNames)-1])
	}
	return text, nil
}

// Request is a parsed entry-point request bound to an executable command.
type Request struct {
	ID      uuid.UUID
	Version int
	Type    Type
	Command queue.Executable
}

// ParseRequest builds an executable command from entry-point JSON.
func ParseRequest(jsonText string) (*Request, error) {
	version, err := PropertyValue(jsonText, "version")
	if err != nil {
		return nil, err
	}
	versionNumber, ok := version.(float64)
	if !ok || int(versionNumber) != SupportedVersion {
		return nil, fmt.Errorf("unsupported entry point version %v", version)
	}

	name, err := stringProperty(jsonText, "entry_point")
	if err != nil {
		return nil, err
	}
	entryPointType, err := ParseType(name)
	if err != nil {
		return nil, err
	}

	databaseName, err := stringProperty(jsonText, "database_name")
	if err != nil {
		return nil, err
	}

	var cmd queue.Executable
	switch entryPointType {
	case TypeCreateDatabase:
		cmd = command.NewCreateDatabase(databaseName)
	default:
		query, err := stringProperty(jsonText, "query")
		if err != nil {
			return nil, err
		}
		parameters, err := queryParameters(jsonText)
		if err != nil {
			return nil, err
		}
		cmd = command.NewExecuteQuery(databaseName, query, parameters)
	}

	return &Request{
		ID:      uuid.New(),
		Version: SupportedVersion,
		Type:    entryPointType,
		Command: cmd,
	}, nil
}

// queryParameters reads the optional "parameters" object.
func queryParameters(jsonText string) (map[string]any, error) {
	value, err := PropertyValue(jsonText, "parameters")
	if err != nil {
		var notFound *PropertyNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	parameters, ok := value.(map[string]any)
	if !ok {
		return nil, errors.New(`property "parameters" is not an object`)
	}
	return parameters, nil
}
