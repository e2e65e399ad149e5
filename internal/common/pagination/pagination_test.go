package pagination

import (
	"net/http/httptest"
	"testing"

	"ghl-oauth-manager/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    Params
		ok      bool
		wantErr bool
	}{
		{name: "absent", query: "", ok: false},
		{name: "page only", query: "?page=3", want: Params{Page: 3, PerPage: DefaultPerPage}, ok: true},
		{name: "per_page only", query: "?per_page=10", want: Params{Page: 1, PerPage: 10}, ok: true},
		{name: "both", query: "?page=2&per_page=5", want: Params{Page: 2, PerPage: 5}, ok: true},
		{name: "zero page", query: "?page=0", wantErr: true},
		{name: "not a number", query: "?per_page=ten", wantErr: true},
		{name: "too large", query: "?per_page=501", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseParams(httptest.NewRequest("GET", "/installations"+tt.query, nil))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	page, meta := Paginate(items, Params{Page: 2, PerPage: 3})
	assert.Equal(t, []int{4, 5, 6}, page)
	assert.Equal(t, Meta{Page: 2, PerPage: 3, TotalPages: 3, TotalResults: 7}, meta)

	page, _ = Paginate(items, Params{Page: 3, PerPage: 3})
	assert.Equal(t, []int{7}, page)

	page, meta = Paginate(items, Params{Page: 9, PerPage: 3})
	assert.Empty(t, page)
	assert.Equal(t, 7, meta.TotalResults)

	page, meta = Paginate([]int{}, Params{Page: 1, PerPage: 3})
	assert.Empty(t, page)
	assert.Equal(t, 1, meta.TotalPages)
}

func TestCalculateTotalPages(t *testing.T) {
	assert.Equal(t, 0, CalculateTotalPages(10, 0))
	assert.Equal(t, 1, CalculateTotalPages(0, 10))
	assert.Equal(t, 2, CalculateTotalPages(11, 10))
}
