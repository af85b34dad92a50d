package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/schaatslog/pkg/model"
)

func TestClientGetData2(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = io.WriteString(w, ";2024-10-12;10:03:58;00:41.000;2838")
	}))
	defer srv.Close()

	c, err := NewClient(WithBaseURL(srv.URL + "/"))
	require.NoError(t, err)
	body, err := c.FetchRaw(context.Background(), "FZ 1", model.FilterAll)
	require.NoError(t, err)
	assert.Equal(t, ";2024-10-12;10:03:58;00:41.000;2838", body)

	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/LapsSubs/getData2.php", got.URL.Path)
	assert.Equal(t, "uid=FZ+1&trmin=0&nol=0&olduid=&version=v9.9.275", got.URL.RawQuery)
	assert.Equal(t, "text/plain, */*", got.Header.Get("Accept"))
	assert.Equal(t, DefaultUserAgent, got.Header.Get("User-Agent"))
	assert.Equal(t, "https://vinksite.com/Laps.htm", got.Header.Get("Referer"))
}

func TestClientLegacy(t *testing.T) {
	for _, ep := range []Endpoint{EndpointLapsData, EndpointLapsGrafieken} {
		t.Run(string(ep), func(t *testing.T) {
			var (
				got  *http.Request
				form string
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r
				data, _ := io.ReadAll(r.Body)
				form = string(data)
				_, _ = io.WriteString(w, "[]")
			}))
			defer srv.Close()

			c, err := NewClient(WithBaseURL(srv.URL), WithEndpoint(ep))
			require.NoError(t, err)
			_, err = c.FetchRaw(context.Background(), "FZ-62579", model.FilterBest)
			require.NoError(t, err)

			assert.Equal(t, http.MethodPost, got.Method)
			assert.Equal(t, "/"+string(ep)+".ashx", got.URL.Path)
			assert.Equal(t, "Transp=FZ-62579&Filter=BESTE&MinLaps=0&MaxLaps=1000", form)
			assert.Equal(t, "application/x-www-form-urlencoded", got.Header.Get("Content-Type"))
			assert.Equal(t, "XMLHttpRequest", got.Header.Get("X-Requested-With"))
			assert.Equal(t, "https://www.vinksite.com/", got.Header.Get("Referer"))
			assert.Equal(t, "https://www.vinksite.com", got.Header.Get("Origin"))
		})
	}
}

func TestClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "1,42.3")
	}))
	defer srv.Close()

	c, err := NewClient(WithURL(srv.URL + "/anything"))
	require.NoError(t, err)
	body, err := c.FetchRaw(context.Background(), "x", model.FilterAll)
	assert.Empty(t, body)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, "HTTP 503: Service Unavailable", err.Error())
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(WithProtocolVersion("9.9"))
	assert.Error(t, err)
	_, err = NewClient(WithEndpoint("Other"))
	assert.Error(t, err)
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		arg     string
		want    Endpoint
		wantErr bool
	}{
		{"", EndpointGetData2, false},
		{"getData2", EndpointGetData2, false},
		{"LapsData", EndpointLapsData, false},
		{"LapsGrafieken", EndpointLapsGrafieken, false},
		{"lapsdata", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := ParseEndpoint(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseEndpoint() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
