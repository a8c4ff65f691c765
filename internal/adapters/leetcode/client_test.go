package leetcode

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const foundBody = `{"data":{"matchedUser":{"username":"a1","submitStats":{"acSubmissionNum":[
  {"difficulty":"All","count":999},
  {"difficulty":"Hard","count":0},
  {"difficulty":"Easy","count":3},
  {"difficulty":"Medium","count":2}
]}}}}`

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_Found(t *testing.T) {
	var got graphQLRequest
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(foundBody))
	})

	o := NewClient(WithURL(srv.URL)).Fetch(context.Background(), "a1")

	assert.Equal(t, model.Outcome{Username: "a1", Found: true, TotalSolved: 5, Easy: 3, Medium: 2, Hard: 0}, o)
	assert.Equal(t, "a1", got.Variables["username"])
	assert.Contains(t, got.Query, "acSubmissionNum")
}

func TestFetch_MissingBucketsDefaultToZero(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"matchedUser":{"submitStats":{"acSubmissionNum":[{"difficulty":"Medium","count":7}]}}}}`))
	})

	o := NewClient(WithURL(srv.URL)).Fetch(context.Background(), "m")

	assert.True(t, o.Found)
	assert.Equal(t, 0, o.Easy)
	assert.Equal(t, 7, o.Medium)
	assert.Equal(t, 7, o.TotalSolved)
}

func TestFetch_FailuresNormaliseToNotFound(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"no matched user": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"matchedUser":null},"errors":[{"message":"That user does not exist."}]}`))
		},
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"forbidden": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		},
		"malformed json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":`))
		},
		"empty object": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		},
	}

	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, h)
			o := NewClient(WithURL(srv.URL)).Fetch(context.Background(), "x")
			assert.Equal(t, model.NotFound("x"), o)
		})
	}
}

func TestFetch_TransportErrorAndTimeout(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(foundBody))
	})

	o := NewClient(WithURL(srv.URL), WithTimeout(20*time.Millisecond)).Fetch(context.Background(), "slow")
	assert.Equal(t, model.NotFound("slow"), o)

	o = NewClient(WithURL("http://127.0.0.1:1")).Fetch(context.Background(), "down")
	assert.Equal(t, model.NotFound("down"), o)
}

func TestLookup_ReportsCause(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := NewClient(WithURL(srv.URL)).Lookup(context.Background(), "x")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)

	_, err = NewClient().Lookup(context.Background(), "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLookup_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(foundBody))
	})

	c := NewClient(WithURL(srv.URL), WithAttempts(3), WithBaseDelay(time.Millisecond))
	o, err := c.Lookup(context.Background(), "a1")

	require.NoError(t, err)
	assert.True(t, o.Found)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLookup_DoesNotRetryMissingUser(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":{"matchedUser":null}}`))
	})

	c := NewClient(WithURL(srv.URL), WithAttempts(4), WithBaseDelay(time.Millisecond))
	_, err := c.Lookup(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLookup_DefaultIsSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	o := NewClient(WithURL(srv.URL)).Fetch(context.Background(), "x")

	assert.False(t, o.Found)
	assert.Equal(t, int32(1), calls.Load())
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "status", errorType(&StatusError{Code: 500}))
	assert.Equal(t, "timeout", errorType(&TransportError{Err: context.DeadlineExceeded}))
	assert.Equal(t, "transport", errorType(&TransportError{Err: errors.New("refused")}))
	assert.Equal(t, "malformed", errorType(ErrMalformedResponse))
	assert.Equal(t, "other", errorType(errors.New("x")))
}
