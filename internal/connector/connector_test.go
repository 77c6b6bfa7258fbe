package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"superconnector/internal/ai"
	"superconnector/internal/metrics"
	"superconnector/internal/store"
)

type resumeUpdate struct {
	id       string
	url      string
	text     string
	category string
}

type stubStore struct {
	users     *store.Users
	createErr error
	listErr   error
	updateErr error

	created      []*store.User
	lastUpdate   *resumeUpdate
	lastCategory string
	listedAll    bool
}

func (s *stubStore) CreateUser(ctx context.Context, name, phone string) (*store.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	u := &store.User{ID: fmt.Sprintf("u-%d", len(s.created)+1), Name: name, Phone: phone}
	s.created = append(s.created, u)
	return u, nil
}

func (s *stubStore) GetUser(ctx context.Context, id string) (*store.User, error) {
	if u := s.users.FindByID(id); u != nil {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (s *stubStore) UpdateResume(ctx context.Context, id, url, text, category string) (*store.User, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.lastUpdate = &resumeUpdate{id: id, url: url, text: text, category: category}
	return &store.User{ID: id, ResumeURL: url, ResumeText: text, Category: category, HasResume: true}, nil
}

func (s *stubStore) ListAll(ctx context.Context) (*store.Users, error) {
	s.listedAll = true
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.users, nil
}

func (s *stubStore) ListByCategory(ctx context.Context, category string) (*store.Users, error) {
	s.lastCategory = category
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.users, nil
}

type stubExtractor struct {
	text     string
	category string
	err      error

	lastURL string
	staged  string
	calls   int
}

// Extract records the staged file contents so tests can assert the upload
// was written to disk before extraction.
func (e *stubExtractor) Extract(ctx context.Context, fileURL string) (string, string, error) {
	e.calls++
	e.lastURL = fileURL
	if data, err := os.ReadFile(strings.TrimPrefix(fileURL, localURLPrefix)); err == nil {
		e.staged = string(data)
	}
	if e.err != nil {
		return "", "", e.err
	}
	return e.text, e.category, nil
}

type stubMatcher struct {
	match *ai.Match
	err   error

	lastLookingFor string
	calls          int
}

func (m *stubMatcher) Match(ctx context.Context, lookingFor string, candidates *store.Users) (*ai.Match, error) {
	m.calls++
	m.lastLookingFor = lookingFor
	if m.err != nil {
		return nil, m.err
	}
	return m.match, nil
}

func newService(st store.Store, ex Extractor, m ai.Matcher) *Service {
	return New(st, ex, m, metrics.New(), zap.NewNop())
}

func testPool() *store.Users {
	return &store.Users{Items: []*store.User{
		{ID: "u-1", Name: "Alice", Phone: "15551234567", ResumeText: "software engineer with 5 years experience"},
		{ID: "u-2", Name: "Bob", Phone: "15557654321", ResumeText: "marketing expert with 10 years experience"},
	}}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		regName string
		phone   string
		wantErr error
	}{
		{name: "empty name", regName: "", phone: "5551234567", wantErr: ErrInvalidRequest},
		{name: "whitespace name", regName: "   ", phone: "5551234567", wantErr: ErrInvalidRequest},
		{name: "short phone", regName: "Alice", phone: "123", wantErr: store.ErrInvalidPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &stubStore{}
			svc := newService(st, &stubExtractor{}, &stubMatcher{})

			_, err := svc.Register(context.Background(), tt.regName, tt.phone, nil)
			require.ErrorIs(t, err, tt.wantErr)
			require.Empty(t, st.created)
		})
	}
}

func TestRegisterWithoutResume(t *testing.T) {
	st := &stubStore{}
	ex := &stubExtractor{}
	svc := newService(st, ex, &stubMatcher{})

	user, err := svc.Register(context.Background(), "  Alice  ", "+1 (555) 123-4567", nil)
	require.NoError(t, err)
	require.Equal(t, "Alice", user.Name)
	require.Equal(t, "15551234567", user.Phone)
	require.Zero(t, ex.calls)
	require.Nil(t, st.lastUpdate)
}

func TestRegisterWithResume(t *testing.T) {
	st := &stubStore{}
	ex := &stubExtractor{text: "Go engineer, ten years of services work", category: "engineering"}
	svc := newService(st, ex, &stubMatcher{})

	upload := &ResumeUpload{Filename: "cv.pdf", Data: strings.NewReader("resume body")}
	user, err := svc.Register(context.Background(), "Alice", "5551234567", upload)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(ex.lastURL, localURLPrefix))
	require.True(t, strings.HasSuffix(ex.lastURL, ".pdf"))
	require.Equal(t, "resume body", ex.staged)

	require.NotNil(t, st.lastUpdate)
	require.Equal(t, "u-1", st.lastUpdate.id)
	require.Equal(t, ex.lastURL, st.lastUpdate.url)
	require.Equal(t, "Go engineer, ten years of services work", st.lastUpdate.text)
	require.Equal(t, "engineering", st.lastUpdate.category)

	require.True(t, user.HasResume)

	// The scratch file must be gone once registration returns.
	_, statErr := os.Stat(strings.TrimPrefix(ex.lastURL, localURLPrefix))
	require.True(t, os.IsNotExist(statErr))
}

func TestRegisterExtractionFailureDegrades(t *testing.T) {
	st := &stubStore{}
	ex := &stubExtractor{err: errors.New("parser crashed")}
	svc := newService(st, ex, &stubMatcher{})

	upload := &ResumeUpload{Filename: "cv.txt", Data: strings.NewReader("resume body")}
	user, err := svc.Register(context.Background(), "Alice", "5551234567", upload)
	require.NoError(t, err)

	require.NotNil(t, st.lastUpdate)
	require.Empty(t, st.lastUpdate.text)
	require.Empty(t, st.lastUpdate.category)
	require.True(t, strings.HasPrefix(st.lastUpdate.url, localURLPrefix))
	require.True(t, user.HasResume)

	// The scratch file is removed even when extraction fails.
	_, statErr := os.Stat(strings.TrimPrefix(ex.lastURL, localURLPrefix))
	require.True(t, os.IsNotExist(statErr))
}

func TestRegisterUpdateResumeError(t *testing.T) {
	st := &stubStore{updateErr: errors.New("connection reset")}
	ex := &stubExtractor{text: "text"}
	svc := newService(st, ex, &stubMatcher{})

	upload := &ResumeUpload{Filename: "cv.txt", Data: strings.NewReader("resume body")}
	_, err := svc.Register(context.Background(), "Alice", "5551234567", upload)
	require.ErrorContains(t, err, "update resume")

	require.True(t, strings.HasPrefix(ex.lastURL, localURLPrefix))
	_, statErr := os.Stat(strings.TrimPrefix(ex.lastURL, localURLPrefix))
	require.True(t, os.IsNotExist(statErr))
}

func TestConnectRequiresLookingFor(t *testing.T) {
	m := &stubMatcher{}
	svc := newService(&stubStore{users: testPool()}, &stubExtractor{}, m)

	_, err := svc.Connect(context.Background(), &ConnectionRequest{LookingFor: "   "})
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Zero(t, m.calls)
}

func TestConnectEmptyPool(t *testing.T) {
	m := &stubMatcher{}
	svc := newService(&stubStore{users: &store.Users{}}, &stubExtractor{}, m)

	_, err := svc.Connect(context.Background(), &ConnectionRequest{LookingFor: "software engineer"})
	require.ErrorIs(t, err, ErrNoUsers)
	require.EqualError(t, err, "No users found in our network")
	require.Zero(t, m.calls)
}

func TestConnectMatched(t *testing.T) {
	pool := testPool()
	m := &stubMatcher{match: &ai.Match{
		User:        pool.Items[0],
		Explanation: "Candidate 1 has database experience",
	}}
	svc := newService(&stubStore{users: pool}, &stubExtractor{}, m)

	result, err := svc.Connect(context.Background(), &ConnectionRequest{LookingFor: "  software engineer  "})
	require.NoError(t, err)
	require.Equal(t, "u-1", result.User.ID)
	require.Equal(t, "Alice has network experience", result.Explanation)
	require.Equal(t, "software engineer", m.lastLookingFor)
}

func TestConnectCategoryNarrowsPool(t *testing.T) {
	pool := testPool()
	st := &stubStore{users: pool}
	m := &stubMatcher{match: &ai.Match{User: pool.Items[0], Explanation: "Candidate 1 fits"}}
	svc := newService(st, &stubExtractor{}, m)

	_, err := svc.Connect(context.Background(), &ConnectionRequest{LookingFor: "engineer", Category: "engineering"})
	require.NoError(t, err)
	require.Equal(t, "engineering", st.lastCategory)
	require.False(t, st.listedAll)

	_, err = svc.Connect(context.Background(), &ConnectionRequest{LookingFor: "engineer"})
	require.NoError(t, err)
	require.True(t, st.listedAll)
}

func TestConnectNoMatch(t *testing.T) {
	m := &stubMatcher{match: &ai.Match{
		User:        nil,
		Explanation: "No good match found because none of the candidates have blockchain experience.",
	}}
	svc := newService(&stubStore{users: testPool()}, &stubExtractor{}, m)

	_, err := svc.Connect(context.Background(), &ConnectionRequest{LookingFor: "blockchain engineer"})
	require.ErrorIs(t, err, ErrNoMatch)
	require.EqualError(t, err, "No users matching your specific requirements ('blockchain engineer') were found in our network.")

	var noMatch *NoMatchError
	require.ErrorAs(t, err, &noMatch)
	require.Equal(t, "blockchain engineer", noMatch.LookingFor)
}

func TestConnectMatcherErrorFallsBack(t *testing.T) {
	m := &stubMatcher{err: errors.New("api quota exceeded")}
	svc := newService(&stubStore{users: testPool()}, &stubExtractor{}, m)

	result, err := svc.Connect(context.Background(), &ConnectionRequest{LookingFor: "software engineer"})
	require.NoError(t, err)
	require.Equal(t, "u-1", result.User.ID)
	require.Equal(t, "Error finding best match, defaulting to Alice. Please try again with more specific criteria.", result.Explanation)
}

func TestConnectListError(t *testing.T) {
	svc := newService(&stubStore{listErr: errors.New("connection refused")}, &stubExtractor{}, &stubMatcher{})

	_, err := svc.Connect(context.Background(), &ConnectionRequest{LookingFor: "software engineer"})
	require.ErrorContains(t, err, "list candidates")
}

func TestFallbackMatchWithoutCandidates(t *testing.T) {
	svc := newService(&stubStore{}, &stubExtractor{}, &stubMatcher{})

	_, err := svc.fallbackMatch(&store.Users{}, errors.New("api down"))
	require.ErrorIs(t, err, ErrMatchUnavailable)
	require.EqualError(t, err, "Error processing match and no candidates available. Please try again later.")
}

func TestConnectRecordsOutcomes(t *testing.T) {
	pool := testPool()
	st := &stubStore{users: pool}
	m := &stubMatcher{match: &ai.Match{User: pool.Items[0], Explanation: "Candidate 1 fits"}}
	met := metrics.New()
	svc := New(st, &stubExtractor{}, m, met, zap.NewNop())

	_, err := svc.Connect(context.Background(), &ConnectionRequest{LookingFor: "engineer"})
	require.NoError(t, err)

	m.match = &ai.Match{User: nil, Explanation: "No good match found."}
	_, err = svc.Connect(context.Background(), &ConnectionRequest{LookingFor: "astronaut"})
	require.ErrorIs(t, err, ErrNoMatch)

	m.err = errors.New("api down")
	_, err = svc.Connect(context.Background(), &ConnectionRequest{LookingFor: "engineer"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	met.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	require.Contains(t, body, `superconnector_connects_total{outcome="matched"} 1`)
	require.Contains(t, body, `superconnector_connects_total{outcome="no_match"} 1`)
	require.Contains(t, body, `superconnector_connects_total{outcome="fallback"} 1`)
	require.Contains(t, body, "superconnector_match_errors_total 1")
}
