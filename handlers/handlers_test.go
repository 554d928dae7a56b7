package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"worklog/middleware"
	"worklog/models"
	"worklog/store"
	"worklog/timeutil"
)

var testUserID = uuid.MustParse("6f1e1f5e-1111-4a66-9c7a-000000000001")

// fakeEntryStore is an in-memory EntryStore seeded per test.
type fakeEntryStore struct {
	entries map[uint]models.WorklogEntry
	nextID  uint

	markedIDs      []uint
	markedWorklogs []string
	markErr        error
}

func newFakeEntryStore(seed ...models.WorklogEntry) *fakeEntryStore {
	s := &fakeEntryStore{entries: map[uint]models.WorklogEntry{}, nextID: 1}
	for _, e := range seed {
		if e.ID >= s.nextID {
			s.nextID = e.ID + 1
		}
		s.entries[e.ID] = e
	}
	return s
}

func (s *fakeEntryStore) dayEntries(userID uuid.UUID, date timeutil.Date) []models.WorklogEntry {
	var out []models.WorklogEntry
	for id := uint(1); id < s.nextID; id++ {
		e, ok := s.entries[id]
		if ok && e.UserID == userID && e.Date == date {
			out = append(out, e)
		}
	}
	return out
}

func (s *fakeEntryStore) DayView(_ context.Context, userID uuid.UUID, date timeutil.Date) (models.DayWorklog, error) {
	return models.NewDayWorklog(date, s.dayEntries(userID, date)), nil
}

func (s *fakeEntryStore) Create(_ context.Context, userID uuid.UUID, create models.WorklogEntryCreate) (models.WorklogEntry, error) {
	entry := models.WorklogEntry{
		ID:          s.nextID,
		UserID:      userID,
		Date:        create.Date,
		IssueKey:    create.IssueKey,
		StartTime:   create.StartTime,
		EndTime:     create.EndTime,
		Description: create.Description,
	}
	s.entries[entry.ID] = entry
	s.nextID++
	return entry, nil
}

func (s *fakeEntryStore) Get(_ context.Context, userID uuid.UUID, id uint) (models.WorklogEntry, error) {
	entry, ok := s.entries[id]
	if !ok || entry.UserID != userID {
		return models.WorklogEntry{}, store.ErrNotFound
	}
	return entry, nil
}

func (s *fakeEntryStore) Update(_ context.Context, userID uuid.UUID, id uint, update models.WorklogEntryUpdate) (models.WorklogEntry, error) {
	entry, err := s.Get(context.Background(), userID, id)
	if err != nil {
		return models.WorklogEntry{}, err
	}
	if errs := update.Apply(&entry); len(errs) > 0 {
		return models.WorklogEntry{}, errs
	}
	s.entries[id] = entry
	return entry, nil
}

func (s *fakeEntryStore) Delete(_ context.Context, userID uuid.UUID, id uint) error {
	if _, err := s.Get(context.Background(), userID, id); err != nil {
		return err
	}
	delete(s.entries, id)
	return nil
}

func (s *fakeEntryStore) ReplaceDay(ctx context.Context, userID uuid.UUID, date timeutil.Date, creates []models.WorklogEntryCreate) (models.DayWorklog, error) {
	for _, e := range s.dayEntries(userID, date) {
		delete(s.entries, e.ID)
	}
	for _, c := range creates {
		if _, err := s.Create(ctx, userID, c); err != nil {
			return models.DayWorklog{}, err
		}
	}
	return s.DayView(ctx, userID, date)
}

func (s *fakeEntryStore) Range(_ context.Context, userID uuid.UUID, start, end timeutil.Date) ([]models.WorklogEntry, error) {
	var out []models.WorklogEntry
	for id := uint(1); id < s.nextID; id++ {
		e, ok := s.entries[id]
		if ok && e.UserID == userID && !start.After(e.Date) && !e.Date.After(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeEntryStore) Unlogged(_ context.Context, userID uuid.UUID, date timeutil.Date) ([]models.WorklogEntry, error) {
	var out []models.WorklogEntry
	for _, e := range s.dayEntries(userID, date) {
		if !e.LoggedToJira {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeEntryStore) MarkLogged(_ context.Context, userID uuid.UUID, id uint, jiraWorklogID string) error {
	if s.markErr != nil {
		return s.markErr
	}
	entry, err := s.Get(context.Background(), userID, id)
	if err != nil {
		return err
	}
	entry.LoggedToJira = true
	entry.JiraWorklogID = jiraWorklogID
	s.entries[id] = entry
	s.markedIDs = append(s.markedIDs, id)
	s.markedWorklogs = append(s.markedWorklogs, jiraWorklogID)
	return nil
}

// fakeSubmitter records calls and replays canned results.
type fakeSubmitter struct {
	singleResult models.LogToJiraResponse
	bulkResult   models.BulkLogToJiraResponse
	singleCalls  int
	bulkCalls    int
	bulkEntries  []models.WorklogEntry
}

func (f *fakeSubmitter) LogEntry(_ context.Context, _ uuid.UUID, entry *models.WorklogEntry) models.LogToJiraResponse {
	f.singleCalls++
	result := f.singleResult
	result.EntryID = entry.ID
	return result
}

func (f *fakeSubmitter) BulkLogEntries(_ context.Context, _ uuid.UUID, entries []models.WorklogEntry) models.BulkLogToJiraResponse {
	f.bulkCalls++
	f.bulkEntries = entries
	return f.bulkResult
}

// fakeConfigStore keeps one config response and the last update.
type fakeConfigStore struct {
	response   models.JiraConfigResponse
	lastUpdate models.JiraConfigUpdate
}

func (f *fakeConfigStore) Get(context.Context, uuid.UUID) (models.JiraConfigResponse, error) {
	return f.response, nil
}

func (f *fakeConfigStore) Update(_ context.Context, _ uuid.UUID, update models.JiraConfigUpdate) (models.JiraConfigResponse, error) {
	f.lastUpdate = update
	return f.response, nil
}

// asUser injects an authenticated user the way the auth middleware does.
func asUser(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := &models.User{ID: userID, Email: "dev@example.com"}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), middleware.UserContextKey, user)))
		})
	}
}

func testRouter(entries EntryStore, configs ConfigStore, submitter Submitter) http.Handler {
	log := zap.NewNop()
	wh := NewWorklogHandler(entries, log)
	jh := NewJiraHandler(entries, configs, submitter, log)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(asUser(testUserID))
		r.Route("/api/worklog", func(r chi.Router) {
			r.Get("/range", wh.GetRange)
			r.Get("/jira/config", jh.GetConfig)
			r.Put("/jira/config", jh.UpdateConfig)
			r.Get("/entries/{entryID}", wh.GetEntry)
			r.Patch("/entries/{entryID}", wh.UpdateEntry)
			r.Delete("/entries/{entryID}", wh.DeleteEntry)
			r.Get("/{date}", wh.GetDay)
			r.Put("/{date}", wh.SaveDay)
			r.Post("/{date}/entries", wh.CreateEntry)
			r.Post("/{date}/entries/{entryID}/log-to-jira", jh.LogEntry)
			r.Post("/{date}/bulk-log-to-jira", jh.BulkLog)
		})
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func seedEntry(id uint, date string, key, start, end, description string) models.WorklogEntry {
	d, err := timeutil.ParseDate(date)
	if err != nil {
		panic(fmt.Sprintf("bad seed date %q", date))
	}
	st, _ := timeutil.ParseTimeOfDay(start)
	et, _ := timeutil.ParseTimeOfDay(end)
	return models.WorklogEntry{
		ID: id, UserID: testUserID, Date: d,
		IssueKey: key, StartTime: st, EndTime: et, Description: description,
	}
}
