package population

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/askdata/pkg/provider/providertest"
	"github.com/rhuss/askdata/pkg/tools/builtins/database"
)

const apiFixture = `
CREATE TABLE api_group (group_name TEXT PRIMARY KEY, group_description TEXT);
CREATE TABLE api_info (api_name TEXT PRIMARY KEY, api_description TEXT, api_url TEXT, api_docs TEXT, api_group TEXT);
INSERT INTO api_group VALUES ('Population Query', 'Department of Statistics data sets'), ('Routing', 'Routes');
INSERT INTO api_info VALUES
	('getEconomicStatus', 'Economic status by planning area', '/api/public/popapi/getEconomicStatus',
		'Params: planningArea, year, gender', 'Population Query'),
	('getHouseholdSize', 'Household size by planning area', '/api/public/popapi/getHouseholdSize',
		'Params: planningArea, year', 'Population Query'),
	('route', 'Driving route', '/api/public/routingsvc/route', 'Params: start, end', 'Routing');
`

func catalog(t *testing.T) *Catalog {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Exec(context.Background(), apiFixture))
	return NewCatalog(db, "")
}

func TestGet(t *testing.T) {
	var gotAuth, gotURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth, gotURI = r.Header.Get("Authorization"), r.URL.RequestURI()
		w.Write([]byte(`[{"planning_area": "Bedok", "employed": 1200}]`))
	}))
	defer srv.Close()

	tool, err := New(Config{BaseURL: srv.URL, Token: "Bearer secret"})
	require.NoError(t, err)

	res, err := tool.Get(context.Background(), "/api/public/popapi/getEconomicStatus?planningArea=Bedok&year=2010")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/api/public/popapi/getEconomicStatus?planningArea=Bedok&year=2010", gotURI)
	assert.Equal(t, []any{map[string]any{"planning_area": "Bedok", "employed": 1200.0}}, res)
}

func TestGetNon200ReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorised", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tool, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	res, err := tool.Get(context.Background(), "api/public/popapi/getHouseholdSize")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestResolve(t *testing.T) {
	tool, err := New(Config{BaseURL: "https://www.onemap.gov.sg/"})
	require.NoError(t, err)

	got, err := tool.resolve("https://www.onemap.gov.sg/api/public/popapi/getPlanningareaNames?year=2020")
	require.NoError(t, err)
	assert.Equal(t, "https://www.onemap.gov.sg/api/public/popapi/getPlanningareaNames?year=2020", got)

	_, err = tool.resolve("https://evil.example.com/steal")
	assert.Error(t, err)
}

func TestPromptContextSelectsAPIs(t *testing.T) {
	model := providertest.New("getEconomicStatus, nonexistent")
	tool, err := New(Config{Catalog: catalog(t), Model: model})
	require.NoError(t, err)

	text, err := tool.PromptContext(context.Background(), "How many people in Bedok are employed?")
	require.NoError(t, err)
	assert.Equal(t, "The population API documentation:\n"+
		"getEconomicStatus: Economic status by planning area\n"+
		"URL: /api/public/popapi/getEconomicStatus\n"+
		"Params: planningArea, year, gender", text)

	prompts := model.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "- getHouseholdSize: Household size by planning area")
	assert.NotContains(t, prompts[0], "Driving route", "other groups must not be offered")
}

func TestPromptContextNone(t *testing.T) {
	tool, err := New(Config{Catalog: catalog(t), Model: providertest.New("no")})
	require.NoError(t, err)
	text, err := tool.PromptContext(context.Background(), "What is the tallest building?")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestPromptContextWithoutCatalog(t *testing.T) {
	tool, err := New(Config{})
	require.NoError(t, err)
	text, err := tool.PromptContext(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
	_, err = New(Config{Catalog: &Catalog{}})
	assert.Error(t, err)
}
