// Package dbqueue specializes the polling executable queue for database
// commands: executions receive the database adapter and result factory, and
// every result's JSON form is forwarded to a callback sink.
package dbqueue

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/austinhellerrepo/postgresapi/callback"
	"github.com/austinhellerrepo/postgresapi/command"
	"github.com/austinhellerrepo/postgresapi/queue"
)

// CommandQueue is a polling executable queue whose payloads are database
// commands. It implements the queue's execution hook.
type CommandQueue struct {
	*queue.PollingExecutableQueue

	database command.Database
	results  command.ResultFactory
	callback callback.Callback
}

// New creates a command queue over the given adapter and result sink and
// starts its background goroutines.
func New(config queue.Config, database command.Database, sink callback.Callback) *CommandQueue {
	q := &CommandQueue{
		database: database,
		results:  command.NewResultFactory(),
		callback: sink,
	}
	q.PollingExecutableQueue = queue.NewPollingExecutableQueue(config, q)
	return q
}

// ExecutionParameters supplies the adapter and result factory to each command.
func (q *CommandQueue) ExecutionParameters() map[string]any {
	return map[string]any{
		command.ParamDatabase:      q.database,
		command.ParamResultFactory: q.results,
	}
}

// HandleResult forwards the result's JSON form to the callback sink. Sink
// failures are contained; the executor moves on to the next command.
func (q *CommandQueue) HandleResult(result any) {
	convertible, ok := result.(command.Convertible)
	if !ok {
		log.Warn("command result is not json convertible", "result", result)
		return
	}
	text, err := convertible.JSONString()
	if err != nil {
		log.Warn("command result serialization failed", "err", err)
		return
	}
	if err := q.callback.Execute(text); err != nil {
		log.Warn("result callback failed", "err", err)
	}
}

// FailureResult produces the synthetic result dispatched when a command
// returns an error instead of a result.
func (q *CommandQueue) FailureResult(err error) any {
	return q.results.Failure(err.Error())
}
