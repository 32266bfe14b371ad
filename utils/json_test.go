package utils_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gokul0616/scrapi/models"
	"github.com/Gokul0616/scrapi/utils"
)

func TestWriteJSONFlattensSuccessfulTerms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	results := []models.TermResult{
		{Term: "coffee shops", Listings: []models.Listing{
			{Title: "Acme Cafe", URL: "https://g/maps/place/acme"},
		}},
		{Term: "bakeries", Err: errors.New("boom")},
		{Term: "diners", Listings: []models.Listing{
			{Title: "Moe's", URL: "https://g/maps/place/moes"},
		}},
	}

	n, err := utils.WriteJSON(path, results)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []models.Listing
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Acme Cafe", decoded[0].Title)
	assert.Equal(t, "Moe's", decoded[1].Title)
}

func TestWriteJSONEmptyResultsWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	n, err := utils.WriteJSON(path, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))
}
