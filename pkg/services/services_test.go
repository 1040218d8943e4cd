package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"watchlist/pkg/auth"
	"watchlist/pkg/envelope"
	"watchlist/pkg/models"
	"watchlist/pkg/repository"
	"watchlist/pkg/tmdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeLookup struct {
	mu      sync.Mutex
	calls   int
	results map[string]models.MetadataResult
	err     error
}

func (f *fakeLookup) SearchByTitle(_ context.Context, title string) (*models.MetadataResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.results[title]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	return &r, nil
}

type recordedEvent struct {
	action string
	userID string
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Emit(_ context.Context, action, userID string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{action: action, userID: userID})
}

func (r *eventRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.action)
	}
	return out
}

type fixture struct {
	users  *repository.MemoryUserRepository
	movies *repository.MemoryMovieRepository
	lookup *fakeLookup
	events *eventRecorder
	codec  *auth.TokenCodec
	now    time.Time
	auth   AuthService
	movie  MovieService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:  repository.NewMemoryUserRepository(),
		movies: repository.NewMemoryMovieRepository(),
		lookup: &fakeLookup{results: map[string]models.MetadataResult{
			"Inception": {
				Title:       "Inception",
				ExternalID:  "27205",
				ImageURL:    "https://image.tmdb.org/t/p/w500/inception.jpg",
				Description: "A thief who steals corporate secrets.",
			},
			"Heat": {Title: "Heat", ExternalID: "949"},
		}},
		events: &eventRecorder{},
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.codec = auth.NewTokenCodec("test-secret").WithClock(func() time.Time { return f.now })
	f.auth = NewAuthService(AuthDeps{
		Users:    f.users,
		Hasher:   auth.NewHasher(bcrypt.MinCost),
		Tokens:   f.codec,
		TokenTTL: 7 * 24 * time.Hour,
		Events:   f.events,
	})
	f.movie = NewMovieService(MovieDeps{
		Movies: f.movies,
		Lookup: f.lookup,
		Events: f.events,
	})
	return f
}

func (f *fixture) signupAndLogin(t *testing.T, username string) (models.AuthUser, string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.auth.Signup(ctx, models.SignupRequest{Username: username, Email: username + "@x.com", Password: "pw1"})
	require.NoError(t, err)
	tok, err := f.auth.Login(ctx, models.LoginRequest{Username: username, Password: "pw1"})
	require.NoError(t, err)
	caller, err := f.auth.Authenticate(ctx, tok.AccessToken)
	require.NoError(t, err)
	return caller, tok.AccessToken
}

func requireKind(t *testing.T, err error, kind *Error) *Error {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	var se *Error
	require.ErrorAs(t, err, &se)
	return se
}

func TestSignup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Signup(ctx, models.SignupRequest{Username: "alice", Email: "alice@x.com", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, "User created successfully", resp.Message)
	assert.Equal(t, []string{envelope.UserRegistered}, f.events.actions())

	acc, err := f.users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", acc.PasswordHash)
}

func TestSignup_Conflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, models.SignupRequest{Username: "alice", Email: "alice@x.com", Password: "pw1"})
	require.NoError(t, err)

	_, err = f.auth.Signup(ctx, models.SignupRequest{Username: "alice", Email: "other@x.com", Password: "pw2"})
	se := requireKind(t, err, ErrConflict)
	assert.Equal(t, "Username already registered", se.Message)

	_, err = f.auth.Signup(ctx, models.SignupRequest{Username: "bob", Email: "alice@x.com", Password: "pw2"})
	se = requireKind(t, err, ErrConflict)
	assert.Equal(t, "Email already registered", se.Message)
}

func TestSignup_Invalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Signup(context.Background(), models.SignupRequest{Username: "al", Email: "a@x.com", Password: "pw"})
	se := requireKind(t, err, ErrInvalid)
	assert.Contains(t, se.Message, "username")
	assert.Empty(t, f.events.actions())
}

// racingUsers reports no existing users so both signups reach Insert.
type racingUsers struct {
	*repository.MemoryUserRepository
}

func (racingUsers) Exists(context.Context, string) (bool, error)        { return false, nil }
func (racingUsers) ExistsByEmail(context.Context, string) (bool, error) { return false, nil }

func TestSignup_ConcurrentDuplicatesYieldOneConflict(t *testing.T) {
	users := racingUsers{repository.NewMemoryUserRepository()}
	svc := NewAuthService(AuthDeps{
		Users:    users,
		Hasher:   auth.NewHasher(bcrypt.MinCost),
		Tokens:   auth.NewTokenCodec("s"),
		TokenTTL: time.Hour,
	})

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Signup(context.Background(), models.SignupRequest{Username: "alice", Email: "alice@x.com", Password: "pw1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		if errors.Is(err, ErrConflict) {
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, models.SignupRequest{Username: "alice", Email: "alice@x.com", Password: "pw1"})
	require.NoError(t, err)

	tok, err := f.auth.Login(ctx, models.LoginRequest{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.NotEmpty(t, tok.AccessToken)
	assert.Equal(t, "alice", tok.User.Username)
	assert.Equal(t, "alice@x.com", tok.User.Email)

	caller, err := f.auth.Authenticate(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tok.User, caller)
}

func TestLogin_TrimsUsernameLikeSignup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, models.SignupRequest{Username: " bob ", Email: "bob@x.com", Password: "pw1"})
	require.NoError(t, err)

	tok, err := f.auth.Login(ctx, models.LoginRequest{Username: " bob ", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, "bob", tok.User.Username)

	tok, err = f.auth.Login(ctx, models.LoginRequest{Username: "bob", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, "bob", tok.User.Username)

	_, err = f.auth.Login(ctx, models.LoginRequest{Username: " bob ", Password: " pw1 "})
	requireKind(t, err, ErrUnauthorized)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, models.SignupRequest{Username: "alice", Email: "alice@x.com", Password: "pw1"})
	require.NoError(t, err)

	_, wrongPassword := f.auth.Login(ctx, models.LoginRequest{Username: "alice", Password: "nope"})
	_, unknownUser := f.auth.Login(ctx, models.LoginRequest{Username: "mallory", Password: "pw1"})

	a := requireKind(t, wrongPassword, ErrUnauthorized)
	b := requireKind(t, unknownUser, ErrUnauthorized)
	assert.Equal(t, a.Message, b.Message)
	assert.Equal(t, "Incorrect username or password", a.Message)
}

func TestAuthenticate_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, token := f.signupAndLogin(t, "alice")

	t.Run("empty", func(t *testing.T) {
		_, err := f.auth.Authenticate(ctx, "")
		requireKind(t, err, ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := f.auth.Authenticate(ctx, "not.a.token")
		requireKind(t, err, ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		saved := f.now
		defer func() { f.now = saved }()

		f.now = f.now.Add(7*24*time.Hour + time.Second)
		_, err := f.auth.Authenticate(ctx, token)
		se := requireKind(t, err, ErrUnauthorized)
		assert.Equal(t, "Could not validate credentials", se.Message)
	})

	t.Run("account gone", func(t *testing.T) {
		ghost, err := f.codec.Issue("ghost", time.Hour)
		require.NoError(t, err)
		_, err = f.auth.Authenticate(ctx, ghost)
		requireKind(t, err, ErrUnauthorized)
	})
}

func TestWatchlistWalkthrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.signupAndLogin(t, "alice")

	added, err := f.movie.Add(ctx, alice, models.AddMovieRequest{Title: "Inception"})
	require.NoError(t, err)
	assert.Equal(t, "Inception", added.Title)
	assert.Equal(t, "27205", added.IMDBID)
	assert.False(t, added.Watched)
	assert.Equal(t, alice.ID, added.UserID)

	list, err := f.movie.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, added, list[0])

	resp, err := f.movie.Delete(ctx, alice, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Movie deleted successfully", resp.Message)

	list, err = f.movie.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, []string{envelope.UserRegistered, envelope.MovieAdded, envelope.MovieDeleted}, f.events.actions())
}

func TestList_OnlyCallersMovies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.signupAndLogin(t, "alice")
	bob, _ := f.signupAndLogin(t, "bob")

	_, err := f.movie.Add(ctx, alice, models.AddMovieRequest{Title: "Inception"})
	require.NoError(t, err)
	_, err = f.movie.Add(ctx, bob, models.AddMovieRequest{Title: "Heat"})
	require.NoError(t, err)
	_, err = f.movie.Add(ctx, alice, models.AddMovieRequest{Title: "Heat"})
	require.NoError(t, err)

	list, err := f.movie.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Inception", list[0].Title)
	assert.Equal(t, "Heat", list[1].Title)
	for _, m := range list {
		assert.Equal(t, alice.ID, m.UserID)
	}
}

func TestAdd_LookupFailuresLeaveStoreUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.signupAndLogin(t, "alice")

	_, err := f.movie.Add(ctx, alice, models.AddMovieRequest{Title: "No Such Film"})
	se := requireKind(t, err, ErrNotFound)
	assert.Equal(t, "Movie not found in TMDB database", se.Message)

	f.lookup.err = &tmdb.ProviderError{Op: "search", StatusCode: 503}
	_, err = f.movie.Add(ctx, alice, models.AddMovieRequest{Title: "Inception"})
	se = requireKind(t, err, ErrUpstream)
	assert.Contains(t, se.Message, "TMDB API request failed")

	list, err := f.movie.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAdd_EmptyTitleSkipsLookup(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.signupAndLogin(t, "alice")

	_, err := f.movie.Add(context.Background(), alice, models.AddMovieRequest{Title: "  "})
	requireKind(t, err, ErrInvalid)
	assert.Zero(t, f.lookup.calls)
}

func TestUpdateWatched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.signupAndLogin(t, "alice")
	bob, _ := f.signupAndLogin(t, "bob")

	m, err := f.movie.Add(ctx, alice, models.AddMovieRequest{Title: "Inception"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		out, err := f.movie.UpdateWatched(ctx, alice, m.ID, true)
		require.NoError(t, err)
		assert.True(t, out.Watched)
	}

	_, err = f.movie.UpdateWatched(ctx, bob, m.ID, false)
	se := requireKind(t, err, ErrForbidden)
	assert.Equal(t, "Not authorized to update this movie", se.Message)

	stored, err := f.movies.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, stored.Watched)

	_, err = f.movie.UpdateWatched(ctx, alice, "missing", true)
	requireKind(t, err, ErrNotFound)
}

func TestDelete_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.signupAndLogin(t, "alice")
	bob, _ := f.signupAndLogin(t, "bob")

	m, err := f.movie.Add(ctx, alice, models.AddMovieRequest{Title: "Inception"})
	require.NoError(t, err)

	_, err = f.movie.Delete(ctx, bob, m.ID)
	se := requireKind(t, err, ErrForbidden)
	assert.Equal(t, "Not authorized to delete this movie", se.Message)

	_, err = f.movie.Delete(ctx, alice, m.ID)
	require.NoError(t, err)

	_, err = f.movie.Delete(ctx, alice, m.ID)
	requireKind(t, err, ErrNotFound)
}

type failingMovies struct {
	repository.MovieRepository
}

func (failingMovies) ListByOwner(context.Context, string) ([]models.Movie, error) {
	return nil, errors.New("connection reset")
}

func TestList_StoreFailureIsInternal(t *testing.T) {
	svc := NewMovieService(MovieDeps{Movies: failingMovies{}, Lookup: &fakeLookup{}})

	_, err := svc.List(context.Background(), models.AuthUser{ID: "u1"})
	se := requireKind(t, err, ErrInternal)
	assert.Contains(t, se.Message, "connection reset")
}

func TestError_IsMatchesKindOnly(t *testing.T) {
	err := newError(KindForbidden, "nope")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, newError(KindForbidden, "other"))

	wrapped := internal("op", repository.ErrNotFound)
	assert.ErrorIs(t, wrapped, ErrInternal)
	assert.ErrorIs(t, wrapped, repository.ErrNotFound)
	assert.Equal(t, "op: record not found", wrapped.Error())
}
