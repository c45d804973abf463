package entrypoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austinhellerrepo/postgresapi/command"
)

func TestPropertyValue(t *testing.T) {
	jsonText := `{"outer": {"inner": {"value": 42}}, "name": "orders"}`

	tests := []struct {
		name    string
		path    []string
		want    any
		missing string
		wantErr bool
	}{
		{name: "top level", path: []string{"name"}, want: "orders"},
		{name: "nested", path: []string{"outer", "inner", "value"}, want: float64(42)},
		{name: "missing top level", path: []string{"absent"}, missing: "absent", wantErr: true},
		{name: "missing nested", path: []string{"outer", "absent"}, missing: "absent", wantErr: true},
		{name: "descend into scalar", path: []string{"name", "deeper"}, missing: "deeper", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := PropertyValue(jsonText, tt.path...)
			if tt.wantErr {
				var notFound *PropertyNotFoundError
				require.ErrorAs(t, err, &notFound)
				assert.Equal(t, tt.missing, notFound.Property)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestPropertyValueInvalidJSON(t *testing.T) {
	_, err := PropertyValue("not json", "name")
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	entryPointType, err := ParseType("create_database")
	require.NoError(t, err)
	assert.Equal(t, TypeCreateDatabase, entryPointType)

	_, err = ParseType("drop_everything")
	assert.Error(t, err)
}

func TestParseRequestCreateDatabase(t *testing.T) {
	request, err := ParseRequest(`{"version": 1, "entry_point": "create_database", "database_name": "orders"}`)
	require.NoError(t, err)

	assert.Equal(t, TypeCreateDatabase, request.Type)
	assert.Equal(t, SupportedVersion, request.Version)
	assert.NotEqual(t, [16]byte{}, [16]byte(request.ID))
	assert.IsType(t, &command.CreateDatabase{}, request.Command)
}

func TestParseRequestQueryEntryPoints(t *testing.T) {
	for _, name := range []string{
		"insert_record", "get_record", "get_records",
		"update_record", "delete_record", "delete_records",
	} {
		t.Run(name, func(t *testing.T) {
			request, err := ParseRequest(`{
				"version": 1,
				"entry_point": "` + name + `",
				"database_name": "orders",
				"query": "SELECT * FROM orders WHERE id = @id",
				"parameters": {"id": 7}
			}`)
			require.NoError(t, err)
			assert.IsType(t, &command.ExecuteQuery{}, request.Command)
		})
	}
}

func TestParseRequestOptionalParameters(t *testing.T) {
	request, err := ParseRequest(`{
		"version": 1,
		"entry_point": "get_records",
		"database_name": "orders",
		"query": "SELECT * FROM orders"
	}`)
	require.NoError(t, err)
	assert.IsType(t, &command.ExecuteQuery{}, request.Command)
}

func TestParseRequestRejections(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{name: "missing version", json: `{"entry_point": "create_database", "database_name": "x"}`},
		{name: "unsupported version", json: `{"version": 2, "entry_point": "create_database", "database_name": "x"}`},
		{name: "unknown entry point", json: `{"version": 1, "entry_point": "nope", "database_name": "x"}`},
		{name: "missing database name", json: `{"version": 1, "entry_point": "create_database"}`},
		{name: "missing query", json: `{"version": 1, "entry_point": "get_record", "database_name": "x"}`},
		{name: "non-object parameters", json: `{"version": 1, "entry_point": "get_record", "database_name": "x", "query": "SELECT 1", "parameters": [1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest(tt.json)
			assert.Error(t, err)
		})
	}
}
