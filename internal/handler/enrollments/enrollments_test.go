package enrollments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alcovian/internal/cache"
	"alcovian/internal/database"
	"alcovian/internal/dto"
	"alcovian/internal/events"
	"alcovian/internal/mailaddr"
	"alcovian/internal/metrics"
	"alcovian/internal/model"
	"alcovian/internal/store"
	"alcovian/internal/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func restore() {
	createEnrollment = store.CreateEnrollment
	listEnrollments = store.ListEnrollments
}

type recordingNotifier struct {
	keys []string
	data []any
}

func (r *recordingNotifier) Notify(_ context.Context, key string, data any) {
	r.keys = append(r.keys, key)
	r.data = append(r.data, data)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validation.New()
	return e
}

func newJSONCtx(e *echo.Echo, method, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body dto.HTTPError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestSignupHandlerRejects(t *testing.T) {
	e := newEcho()
	t.Cleanup(restore)
	createEnrollment = func(context.Context, database.DB, *model.Enrollment) (*model.Enrollment, error) {
		t.Fatal("storage must not be reached")
		return nil, nil
	}

	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty body", "", "Invalid request body"},
		{"malformed json", "{", "Invalid request body"},
		{"null", "null", "Invalid request body"},
		{"array", `[{"name":"a","email":"a@b.com"}]`, "Invalid request body"},
		{"string", `"hello"`, "Invalid request body"},
		{"missing name", `{"email":"a@b.com"}`, "Name is required"},
		{"blank name", `{"name":"","email":"a@b.com"}`, "Name is required"},
		{"whitespace name", `{"name":"   ","email":"a@b.com"}`, "Name is required"},
		{"numeric name", `{"name":5,"email":"a@b.com"}`, "Name is required"},
		{"missing name and email", `{}`, "Name is required"},
		{"missing email", `{"name":"Ada"}`, "Valid email is required"},
		{"numeric email", `{"name":"Ada","email":12}`, "Valid email is required"},
		{"empty email", `{"name":"Ada","email":""}`, "Valid email is required"},
		{"blank email", `{"name":"Ada","email":"   "}`, "Please enter your email address"},
		{"no tld", `{"name":"Ada","email":"ada@localhost"}`, "Please enter a valid email address with a domain"},
		{"repeated tld", `{"name":"Ada","email":"a@gmail.com.com"}`, mailaddr.Message(mailaddr.ErrDuplicateTLD)},
		{"numeric tld", `{"name":"Ada","email":"x@1.2"}`, mailaddr.Message(mailaddr.ErrInvalidTLD)},
		{"malformed", `{"name":"Ada","email":"a@b..com"}`, "Please enter a valid email address"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, rec := newJSONCtx(e, http.MethodPost, tc.body)
			require.NoError(t, SignupHandler(nil, nil, nil, time.Second)(ctx))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tc.want, errorBody(t, rec))
		})
	}
}

func TestSignupHandlerCountsEmailFailures(t *testing.T) {
	e := newEcho()
	counter := metrics.EmailValidationFailures.WithLabelValues("duplicate_tld")
	before := testutil.ToFloat64(counter)
	ctx, _ := newJSONCtx(e, http.MethodPost, `{"name":"Ada","email":"a@gmail.com.com"}`)
	require.NoError(t, SignupHandler(nil, nil, nil, time.Second)(ctx))
	require.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestSignupHandlerSuccess(t *testing.T) {
	e := newEcho()
	t.Cleanup(restore)

	createdAt := time.Date(2025, 5, 1, 15, 4, 5, 0, time.UTC)
	var stored *model.Enrollment
	var hasDeadline bool
	createEnrollment = func(ctx context.Context, _ database.DB, en *model.Enrollment) (*model.Enrollment, error) {
		_, hasDeadline = ctx.Deadline()
		stored = en
		en.ID = 42
		en.CreatedAt = createdAt
		return en, nil
	}
	var bumped []string
	cch := &cache.FakeCache{IncrFn: func(_ context.Context, key string) *redis.IntCmd {
		bumped = append(bumped, key)
		return redis.NewIntResult(1, nil)
	}}
	notifier := &recordingNotifier{}

	ctx, rec := newJSONCtx(e, http.MethodPost, `{"name":"  Ada Lovelace ","email":"  Ada@Example.COM ","context":"  spring cohort  "}`)
	require.NoError(t, SignupHandler(&database.FakeDB{}, cch, notifier, time.Second)(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	require.True(t, hasDeadline)
	require.Equal(t, "Ada Lovelace", stored.Name)
	require.Equal(t, "ada@example.com", stored.Email)
	require.NotNil(t, stored.Context)
	require.Equal(t, "spring cohort", *stored.Context)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["ok"])
	require.Equal(t, "Enrollment submitted successfully", resp["message"])
	require.Equal(t, float64(42), resp["id"])
	require.Equal(t, "ada@example.com", resp["email"])
	require.Equal(t, "2025-05-01T15:04:05Z", resp["created_at"])
	require.NotContains(t, resp, "name")
	require.NotContains(t, resp, "context")

	require.Equal(t, []string{listVersionKey}, bumped)
	require.Equal(t, []string{events.RoutingEnrollmentCreated}, notifier.keys)
	require.Equal(t, events.EnrollmentCreated{ID: 42, Email: "ada@example.com", CreatedAt: createdAt}, notifier.data[0])
}

func TestSignupHandlerContextAbsent(t *testing.T) {
	e := newEcho()
	t.Cleanup(restore)

	for _, body := range []string{
		`{"name":"Ada","email":"a@b.com"}`,
		`{"name":"Ada","email":"a@b.com","context":"   "}`,
		`{"name":"Ada","email":"a@b.com","context":null}`,
		`{"name":"Ada","email":"a@b.com","context":{"k":1}}`,
	} {
		var stored *model.Enrollment
		createEnrollment = func(_ context.Context, _ database.DB, en *model.Enrollment) (*model.Enrollment, error) {
			stored = en
			en.ID = 1
			return en, nil
		}
		ctx, rec := newJSONCtx(e, http.MethodPost, body)
		require.NoError(t, SignupHandler(&database.FakeDB{}, nil, nil, time.Second)(ctx))
		require.Equal(t, http.StatusOK, rec.Code, body)
		require.Nil(t, stored.Context, body)
	}
}

func TestSignupHandlerStorageErrors(t *testing.T) {
	e := newEcho()
	t.Cleanup(restore)

	t.Run("generic failure hides cause", func(t *testing.T) {
		createEnrollment = func(context.Context, database.DB, *model.Enrollment) (*model.Enrollment, error) {
			return nil, errors.New("pq: relation enrollments does not exist")
		}
		notifier := &recordingNotifier{}
		ctx, rec := newJSONCtx(e, http.MethodPost, `{"name":"Ada","email":"a@b.com"}`)
		require.NoError(t, SignupHandler(&database.FakeDB{}, nil, notifier, time.Second)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "Failed to process enrollment. Please try again later.", errorBody(t, rec))
		require.NotContains(t, rec.Body.String(), "relation")
		require.Empty(t, notifier.keys)
	})

	t.Run("unconfigured database", func(t *testing.T) {
		restore()
		ctx, rec := newJSONCtx(e, http.MethodPost, `{"name":"Ada","email":"a@b.com"}`)
		require.NoError(t, SignupHandler(database.NewLazy("", nil), nil, nil, time.Second)(ctx))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "Service temporarily unavailable", errorBody(t, rec))
	})
}

func TestSignupHandlerCacheFailureIgnored(t *testing.T) {
	e := newEcho()
	t.Cleanup(restore)
	createEnrollment = func(_ context.Context, _ database.DB, en *model.Enrollment) (*model.Enrollment, error) {
		en.ID = 7
		return en, nil
	}
	cch := &cache.FakeCache{IncrFn: func(context.Context, string) *redis.IntCmd {
		return redis.NewIntResult(0, errors.New("redis down"))
	}}
	ctx, rec := newJSONCtx(e, http.MethodPost, `{"name":"Ada","email":"a@b.com"}`)
	require.NoError(t, SignupHandler(&database.FakeDB{}, cch, nil, time.Second)(ctx))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListHandler(t *testing.T) {
	e := newEcho()
	t.Cleanup(restore)

	newer := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	rows := []model.Enrollment{
		{ID: 2, Name: "B", Email: "b@x.io", CreatedAt: newer},
		{ID: 1, Name: "A", Email: "a@x.io", CreatedAt: older},
	}

	t.Run("no cache", func(t *testing.T) {
		listEnrollments = func(context.Context, database.DB) ([]model.Enrollment, error) { return rows, nil }
		ctx, rec := newJSONCtx(e, http.MethodGet, "")
		require.NoError(t, ListHandler(&database.FakeDB{}, nil, time.Minute, time.Second)(ctx))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp dto.EnrollmentsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Enrollments, 2)
		require.Equal(t, int64(2), resp.Enrollments[0].ID)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		listEnrollments = func(context.Context, database.DB) ([]model.Enrollment, error) { return nil, nil }
		ctx, rec := newJSONCtx(e, http.MethodGet, "")
		require.NoError(t, ListHandler(&database.FakeDB{}, nil, 0, time.Second)(ctx))
		require.JSONEq(t, `{"enrollments":[]}`, rec.Body.String())
	})

	t.Run("storage error", func(t *testing.T) {
		listEnrollments = func(context.Context, database.DB) ([]model.Enrollment, error) {
			return nil, errors.New("timeout")
		}
		ctx, rec := newJSONCtx(e, http.MethodGet, "")
		require.NoError(t, ListHandler(&database.FakeDB{}, nil, 0, time.Second)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "Failed to retrieve enrollments", errorBody(t, rec))
	})

	t.Run("unconfigured", func(t *testing.T) {
		restore()
		ctx, rec := newJSONCtx(e, http.MethodGet, "")
		require.NoError(t, ListHandler(database.NewLazy("", nil), nil, 0, time.Second)(ctx))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestListHandlerCache(t *testing.T) {
	e := newEcho()
	t.Cleanup(restore)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := 0
	listEnrollments = func(context.Context, database.DB) ([]model.Enrollment, error) {
		calls++
		return []model.Enrollment{{ID: int64(calls), Name: "A", Email: "a@x.io"}}, nil
	}
	list := ListHandler(&database.FakeDB{}, rdb, time.Minute, time.Second)

	get := func() dto.EnrollmentsResponse {
		ctx, rec := newJSONCtx(e, http.MethodGet, "")
		require.NoError(t, list(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.EnrollmentsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	require.Equal(t, int64(1), get().Enrollments[0].ID)
	require.Equal(t, int64(1), get().Enrollments[0].ID)
	require.Equal(t, 1, calls)
	require.True(t, mr.Exists("enrollments:all:0"))
	require.Equal(t, time.Minute, mr.TTL("enrollments:all:0"))

	// a signup invalidates the cached list
	createEnrollment = func(_ context.Context, _ database.DB, en *model.Enrollment) (*model.Enrollment, error) {
		en.ID = 9
		return en, nil
	}
	ctx, rec := newJSONCtx(e, http.MethodPost, `{"name":"Ada","email":"a@b.com"}`)
	require.NoError(t, SignupHandler(&database.FakeDB{}, rdb, nil, time.Second)(ctx))
	require.Equal(t, http.StatusOK, rec.Code)
	version, err := mr.Get(listVersionKey)
	require.NoError(t, err)
	require.Equal(t, "1", version)

	require.Equal(t, int64(2), get().Enrollments[0].ID)
	require.Equal(t, 2, calls)
	require.True(t, mr.Exists("enrollments:all:1"))

	// unreadable entries are replaced from the database
	require.NoError(t, mr.Set("enrollments:all:1", "not json"))
	require.Equal(t, int64(3), get().Enrollments[0].ID)
}

func TestListHandlerCacheSignupDuringRead(t *testing.T) {
	e := newEcho()
	t.Cleanup(restore)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	createEnrollment = func(_ context.Context, _ database.DB, en *model.Enrollment) (*model.Enrollment, error) {
		en.ID = 2
		return en, nil
	}
	signup := SignupHandler(&database.FakeDB{}, rdb, nil, time.Second)

	calls := 0
	listEnrollments = func(context.Context, database.DB) ([]model.Enrollment, error) {
		calls++
		if calls == 1 {
			// the read sees the table before the signup commits,
			// and the signup finishes before the read is cached
			ctx, rec := newJSONCtx(e, http.MethodPost, `{"name":"Ada","email":"a@b.com"}`)
			require.NoError(t, signup(ctx))
			require.Equal(t, http.StatusOK, rec.Code)
			return []model.Enrollment{{ID: 1}}, nil
		}
		return []model.Enrollment{{ID: 2}, {ID: 1}}, nil
	}
	list := ListHandler(&database.FakeDB{}, rdb, time.Minute, time.Second)

	get := func() dto.EnrollmentsResponse {
		ctx, rec := newJSONCtx(e, http.MethodGet, "")
		require.NoError(t, list(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.EnrollmentsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	require.Len(t, get().Enrollments, 1)
	// the stale list must not answer requests made after the signup
	require.Len(t, get().Enrollments, 2)
	require.Equal(t, 2, calls)
	require.Len(t, get().Enrollments, 2)
	require.Equal(t, 2, calls)
}

func TestListHandlerCacheErrorFallsBack(t *testing.T) {
	e := newEcho()
	t.Cleanup(restore)
	listEnrollments = func(context.Context, database.DB) ([]model.Enrollment, error) {
		return []model.Enrollment{{ID: 5}}, nil
	}

	t.Run("version unreadable skips the cache", func(t *testing.T) {
		// Set is left unset so a write would panic
		failing := &cache.FakeCache{
			GetFn: func(context.Context, string) *redis.StringCmd {
				return redis.NewStringResult("", errors.New("redis down"))
			},
		}
		ctx, rec := newJSONCtx(e, http.MethodGet, "")
		require.NoError(t, ListHandler(&database.FakeDB{}, failing, time.Minute, time.Second)(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"id":5`)
	})

	t.Run("entry read and write errors", func(t *testing.T) {
		var written string
		failing := &cache.FakeCache{
			GetFn: func(_ context.Context, key string) *redis.StringCmd {
				if key == listVersionKey {
					return redis.NewStringResult("4", nil)
				}
				return redis.NewStringResult("", errors.New("redis down"))
			},
			SetFn: func(_ context.Context, key string, _ any, _ time.Duration) *redis.StatusCmd {
				written = key
				return redis.NewStatusResult("", errors.New("redis down"))
			},
		}
		ctx, rec := newJSONCtx(e, http.MethodGet, "")
		require.NoError(t, ListHandler(&database.FakeDB{}, failing, time.Minute, time.Second)(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"id":5`)
		require.Equal(t, "enrollments:all:4", written)
	})
}
