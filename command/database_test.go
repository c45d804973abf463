package command

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDatabase scripts per-operation failures and records the call order.
type fakeDatabase struct {
	createErr     error
	connectErr    error
	queryErr      error
	disconnectErr error
	queryOutput   any
	calls         []string
}

func (f *fakeDatabase) CreateDatabase(name string) error {
	f.calls = append(f.calls, "create:"+name)
	return f.createErr
}

func (f *fakeDatabase) ConnectTo(name string) error {
	f.calls = append(f.calls, "connect:"+name)
	return f.connectErr
}

func (f *fakeDatabase) ExecuteQuery(query string, parameters map[string]any) (any, error) {
	f.calls = append(f.calls, "query:"+query)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryOutput, nil
}

func (f *fakeDatabase) Disconnect() error {
	f.calls = append(f.calls, "disconnect")
	return f.disconnectErr
}

func executionParams(db Database) map[string]any {
	return map[string]any{
		ParamDatabase:      db,
		ParamResultFactory: NewResultFactory(),
	}
}

func decode(t *testing.T, result any) map[string]any {
	t.Helper()
	text, err := result.(Convertible).JSONString()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	return decoded
}

func TestCreateDatabaseCommand(t *testing.T) {
	tests := []struct {
		name       string
		createErr  error
		successful bool
	}{
		{name: "success", successful: true},
		{name: "failure", createErr: errors.New("duplicate database")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDatabase{createErr: tt.createErr}
			result, err := NewCreateDatabase("orders").Execute(executionParams(db))
			require.NoError(t, err)

			decoded := decode(t, result)
			assert.Equal(t, float64(1), decoded["version"])
			assert.Equal(t, tt.successful, decoded["is_successful"])
			assert.Equal(t, "orders", decoded["database_name"])
			if !tt.successful {
				assert.Equal(t, "duplicate database", decoded["error_message"])
			}
			assert.Equal(t, []string{"create:orders"}, db.calls)
		})
	}
}

func TestExecuteQueryCommand(t *testing.T) {
	tests := []struct {
		name          string
		db            *fakeDatabase
		successful    bool
		wantCalls     []string
		wantChildren  int
		wantOutput    any
		wantHasOutput bool
	}{
		{
			name:          "all steps succeed",
			db:            &fakeDatabase{queryOutput: []map[string]any{{"id": 1}}},
			successful:    true,
			wantCalls:     []string{"connect:orders", "query:SELECT 1", "disconnect"},
			wantChildren:  3,
			wantOutput:    []map[string]any{{"id": 1}},
			wantHasOutput: true,
		},
		{
			name:         "connect failure short-circuits",
			db:           &fakeDatabase{connectErr: errors.New("already connected")},
			wantCalls:    []string{"connect:orders"},
			wantChildren: 1,
		},
		{
			name:         "query failure skips disconnect",
			db:           &fakeDatabase{queryErr: errors.New("syntax error")},
			wantCalls:    []string{"connect:orders", "query:SELECT 1"},
			wantChildren: 2,
		},
		{
			name:         "disconnect failure",
			db:           &fakeDatabase{disconnectErr: errors.New("not connected")},
			wantCalls:    []string{"connect:orders", "query:SELECT 1", "disconnect"},
			wantChildren: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewExecuteQuery("orders", "SELECT 1", map[string]any{"limit": 10}).
				Execute(executionParams(tt.db))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, tt.db.calls)

			queryResult, ok := result.(*ExecuteQueryResult)
			require.True(t, ok)
			assert.Equal(t, tt.successful, queryResult.Successful())
			assert.Len(t, queryResult.Children(), tt.wantChildren)

			output, ok := queryResult.TryOutput()
			assert.Equal(t, tt.wantHasOutput, ok)
			assert.Equal(t, tt.wantOutput, output)

			decoded := decode(t, result)
			assert.Equal(t, tt.successful, decoded["is_successful"])
			children, ok := decoded["children"].([]any)
			require.True(t, ok)
			assert.Len(t, children, tt.wantChildren)
		})
	}
}

func TestExecuteQueryMissingParameters(t *testing.T) {
	_, err := NewExecuteQuery("orders", "SELECT 1", nil).Execute(nil)
	assert.Error(t, err)

	_, err = NewExecuteQuery("orders", "SELECT 1", nil).Execute(map[string]any{
		ParamDatabase: &fakeDatabase{},
	})
	assert.Error(t, err)
}

func TestCompositeResultJSON(t *testing.T) {
	composite := NewCompositeResult(true, []Result{
		NewDefaultResult(`{"step":1}`),
		NewDefaultResult(`{"step":2}`),
	})
	text, err := composite.JSONString()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	assert.Equal(t, float64(1), decoded["version"])
	assert.Equal(t, true, decoded["is_successful"])
	assert.Equal(t, []any{
		map[string]any{"step": float64(1)},
		map[string]any{"step": float64(2)},
	}, decoded["children"])
}

func TestResultFactoryFailureShape(t *testing.T) {
	decoded := decode(t, NewResultFactory().Failure("executable failed"))
	assert.Equal(t, false, decoded["is_successful"])
	assert.Equal(t, "executable failed", decoded["error_message"])
}
