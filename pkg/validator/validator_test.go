package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gameInput struct {
	ID       int64   `json:"id" validate:"gt=0"`
	Title    string  `json:"title" validate:"required,max=10"`
	ImageURL string  `json:"image_url" validate:"omitempty,url"`
	Price    float64 `json:"price" validate:"gte=0"`
	Platform string  `json:"platform" validate:"omitempty,oneof=pc console"`
	Internal string  `json:"-" validate:"omitempty,min=3"`
}

func validInput() gameInput {
	return gameInput{ID: 7, Title: "Hades", ImageURL: "https://img.example/hades.png", Price: 24.99}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(validInput()))
}

func TestValidate_FieldsUseJSONNames(t *testing.T) {
	in := validInput()
	in.ID = 0
	in.Title = ""

	fields := fieldsOf(t, Validate(in))
	assert.Equal(t, "must be greater than 0", fields["id"])
	assert.Equal(t, "is required", fields["title"])
}

func TestValidate_Messages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*gameInput)
		field  string
		want   string
	}{
		{"max", func(g *gameInput) { g.Title = "Disco Elysium" }, "title", "must be at most 10 characters"},
		{"url", func(g *gameInput) { g.ImageURL = "not a url" }, "image_url", "must be a valid URL"},
		{"gte", func(g *gameInput) { g.Price = -1 }, "price", "must be greater than or equal to 0"},
		{"oneof", func(g *gameInput) { g.Platform = "arcade" }, "platform", "must be one of: pc console"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			assert.Equal(t, tt.want, fieldsOf(t, Validate(in))[tt.field])
		})
	}
}

func TestValidate_DashTagFallsBackToEmptyName(t *testing.T) {
	in := validInput()
	in.Internal = "x"
	fields := fieldsOf(t, Validate(in))
	assert.Len(t, fields, 1)
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(gameInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'title' is required")
	assert.Contains(t, err.Error(), "field 'id'")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"id":12,"title":"Celeste","price":19.99}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var in gameInput
	require.NoError(t, DecodeAndValidate(req, &in))
	assert.Equal(t, int64(12), in.ID)
	assert.Equal(t, "Celeste", in.Title)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var in gameInput
	err := DecodeAndValidate(req, &in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)

	var in gameInput
	err := DecodeAndValidate(req, &in)
	require.Error(t, err)
	assert.Equal(t, "request body is empty", err.Error())
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":-1,"title":"x"}`))

	var in gameInput
	fields := fieldsOf(t, DecodeAndValidate(req, &in))
	assert.Contains(t, fields, "id")
}
