package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	s, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func day(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle", DSN: "x"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// journal_mode reports "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	for _, table := range []string{"users", "recipients", "worksheets", "configs", "llm_request_events"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestTablesForeignKeys(t *testing.T) {
	tables, err := Tables()
	if err != nil {
		t.Fatalf("tables: %v", err)
	}
	fks := map[string]int{}
	for _, tb := range tables {
		fks[tb.Name] = len(tb.ForeignKeys)
	}
	if fks["recipients"] != 1 || fks["worksheets"] != 1 {
		t.Errorf("foreign keys = %v, want one each on recipients and worksheets", fks)
	}
	if fks["users"] != 0 {
		t.Errorf("users has %d foreign keys, want 0", fks["users"])
	}
}

func TestConfigGetSet(t *testing.T) {
	s := openTestStore(t)
	repo := s.Configs()
	ctx := context.Background()

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing = %v, want ErrNotFound", err)
	}
	if err := repo.Set(ctx, "k", "a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Set(ctx, "k", "b"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := repo.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "b" {
		t.Errorf("value = %q, want b", got)
	}
}

func TestConfigIncrement(t *testing.T) {
	s := openTestStore(t)
	repo := s.Configs()
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := repo.Increment(ctx, "cursor")
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Errorf("increment = %d, want %d", got, want)
		}
	}

	v, err := repo.Get(ctx, "cursor")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "5" {
		t.Errorf("stored value = %q, want 5", v)
	}
}

func TestConfigIncrementConcurrent(t *testing.T) {
	s := openTestStore(t)
	repo := s.Configs()
	ctx := context.Background()

	const n = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := repo.Increment(ctx, "cursor")
			if err != nil {
				t.Errorf("increment: %v", err)
				return
			}
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("distinct values = %d, want %d", len(seen), n)
	}
	for v := int64(1); v <= n; v++ {
		if !seen[v] {
			t.Errorf("value %d never handed out", v)
		}
	}
}

func TestIncrementRejectsNonInteger(t *testing.T) {
	s := openTestStore(t)
	repo := s.Configs()
	ctx := context.Background()

	if err := repo.Set(ctx, "cursor", "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	// CAST('abc' AS INTEGER) is 0 in SQLite, so the counter restarts at 1.
	got, err := repo.Increment(ctx, "cursor")
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if got != 1 {
		t.Errorf("increment = %d, want 1", got)
	}
}

func TestUserLifecycle(t *testing.T) {
	s := openTestStore(t)
	users := s.Users()
	ctx := context.Background()

	next := day("2026-03-02")
	u, err := users.Create(ctx, " Ana@Example.com ", &next)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "ana@example.com" || !u.Active {
		t.Errorf("created = %+v", u)
	}

	if _, err := users.Create(ctx, "ana@example.com", nil); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate create = %v, want ErrConflict", err)
	}

	got, err := users.GetByEmail(ctx, "ANA@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("id = %d, want %d", got.ID, u.ID)
	}
	if got.NextDelivery == nil || !got.NextDelivery.Equal(next) {
		t.Errorf("next delivery = %v, want %v", got.NextDelivery, next)
	}

	if _, err := users.Get(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("get missing = %v, want ErrNotFound", err)
	}
	if err := users.SetActive(ctx, 9999, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("set active missing = %v, want ErrNotFound", err)
	}
}

func TestUsersDue(t *testing.T) {
	s := openTestStore(t)
	users := s.Users()
	ctx := context.Background()

	today := day("2026-03-02")
	tomorrow := day("2026-03-03")

	a, _ := users.Create(ctx, "a@example.com", &today)
	b, _ := users.Create(ctx, "b@example.com", &today)
	_, _ = users.Create(ctx, "c@example.com", &tomorrow)
	_, _ = users.Create(ctx, "d@example.com", nil)

	if err := users.SetActive(ctx, b.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	due, err := users.Due(ctx, today)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 || due[0].ID != a.ID {
		t.Fatalf("due = %+v, want only %s", due, a.Email)
	}

	if err := users.SetNextDelivery(ctx, a.ID, today.AddDate(0, 0, 2)); err != nil {
		t.Fatalf("set next delivery: %v", err)
	}
	due, err = users.Due(ctx, today)
	if err != nil {
		t.Fatalf("due after reschedule: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("due after reschedule = %d users, want 0", len(due))
	}
}

func TestRecipients(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u, err := s.Users().Create(ctx, "owner@example.com", nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	repo := s.Recipients()

	if _, err := repo.Add(ctx, u.ID, "Friend@Example.com", "Friend"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := repo.Add(ctx, u.ID, "friend@example.com", ""); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate add = %v, want ErrConflict", err)
	}
	if _, err := repo.Add(ctx, 9999, "x@example.com", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("add for missing user = %v, want ErrNotFound", err)
	}

	list, err := repo.List(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Email != "friend@example.com" || list[0].Name != "Friend" {
		t.Fatalf("list = %+v", list)
	}

	if err := repo.Remove(ctx, u.ID, "friend@example.com"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := repo.Remove(ctx, u.ID, "friend@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove = %v, want ErrNotFound", err)
	}
}

func TestContentHash(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := ContentHash("abc"); got != want {
		t.Errorf("ContentHash = %s, want %s", got, want)
	}
}

func TestWorksheetCommitReplacesPrevious(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u, _ := s.Users().Create(ctx, "a@example.com", nil)
	repo := s.Worksheets()

	first, err := repo.Commit(ctx, NewWorksheet{UserID: u.ID, Content: `{"a":1}`, Themes: []string{"travel"}, SchemaVersion: "v2"})
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	second, err := repo.Commit(ctx, NewWorksheet{UserID: u.ID, Content: `{"a":2}`, Themes: []string{"food", "work"}, SchemaVersion: "v2"})
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}

	n, err := repo.CountByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("worksheets for user = %d, want 1", n)
	}
	if n, _ := repo.CountByHash(ctx, first.ContentHash); n != 0 {
		t.Errorf("first worksheet still present")
	}

	latest, err := repo.Latest(ctx, u.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.ID != second.ID {
		t.Fatalf("latest = %+v, want id %d", latest, second.ID)
	}
	if latest.Content != `{"a":2}` || latest.SchemaVersion != "v2" {
		t.Errorf("latest = %+v", latest)
	}
	if len(latest.Themes) != 2 || latest.Themes[0] != "food" {
		t.Errorf("themes = %v", latest.Themes)
	}
}

func TestWorksheetCommitDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a, _ := s.Users().Create(ctx, "a@example.com", nil)
	b, _ := s.Users().Create(ctx, "b@example.com", nil)
	repo := s.Worksheets()

	if _, err := repo.Commit(ctx, NewWorksheet{UserID: a.ID, Content: "same"}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	prior, err := repo.Commit(ctx, NewWorksheet{UserID: b.ID, Content: "other"})
	if err != nil {
		t.Fatalf("commit b: %v", err)
	}

	// Same content under another user is still a duplicate, and b's
	// existing worksheet must survive the rejected write.
	if _, err := repo.Commit(ctx, NewWorksheet{UserID: b.ID, Content: "same"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate commit = %v, want ErrDuplicate", err)
	}
	latest, err := repo.Latest(ctx, b.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.ID != prior.ID {
		t.Errorf("latest = %+v, want the prior worksheet", latest)
	}
	if n, _ := repo.CountByHash(ctx, ContentHash("same")); n != 1 {
		t.Errorf("count by hash = %d, want 1", n)
	}
}

func TestWorksheetLatestNone(t *testing.T) {
	s := openTestStore(t)
	w, err := s.Worksheets().Latest(context.Background(), 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if w != nil {
		t.Errorf("latest = %+v, want nil", w)
	}
}

func TestWorksheetCommitUnknownUser(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Worksheets().Commit(context.Background(), NewWorksheet{UserID: 42, Content: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("commit = %v, want ErrNotFound", err)
	}
}

func TestLockUser(t *testing.T) {
	if lock := lockUser(entsql.Dialect(dialect.SQLite), dialect.SQLite, 7); lock != nil {
		t.Errorf("sqlite lock = %v, want none", lock)
	}

	lock := lockUser(entsql.Dialect(dialect.Postgres), dialect.Postgres, 7)
	if lock == nil {
		t.Fatal("expected a row lock on postgres")
	}
	query, args := lock.Query()
	if !strings.Contains(query, `FROM "users"`) || !strings.HasSuffix(query, "FOR UPDATE") {
		t.Errorf("query = %q", query)
	}
	if len(args) != 1 || args[0] != 7 {
		t.Errorf("args = %v, want [7]", args)
	}
}

func TestDeletingUserCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u, _ := s.Users().Create(ctx, "a@example.com", nil)
	if _, err := s.Worksheets().Commit(ctx, NewWorksheet{UserID: u.ID, Content: "x"}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := s.DB().Exec("DELETE FROM users WHERE id = ?", u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if n, _ := s.Worksheets().CountByUser(ctx, u.ID); n != 0 {
		t.Errorf("worksheets left = %d, want 0", n)
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sc := newSequenceCounter(s.Configs())

	for want := int64(1); want <= 5; want++ {
		seq, err := sc.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if seq != want {
			t.Errorf("seq = %d, want %d", seq, want)
		}
	}
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "deepseek", Model: "deepseek-chat", Purpose: "worksheet-gen", InputTokens: 100, OutputTokens: 400, LatencyMs: 1000, Success: true, RequestBody: "prompt", ResponseBody: "{}"},
		{Provider: "deepseek", Model: "deepseek-chat", Purpose: "worksheet-gen", InputTokens: 120, OutputTokens: 380, LatencyMs: 3000, Success: true},
		{Provider: "deepseek", Model: "deepseek-chat", Purpose: "worksheet-repair", InputTokens: 50, OutputTokens: 50, LatencyMs: 500, Success: false, ErrorMessage: "timeout"},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("events = %d, want 3", len(all))
	}
	if all[0].Purpose != "worksheet-repair" || all[0].Sequence <= all[1].Sequence {
		t.Errorf("events not newest first: %+v", all)
	}
	if all[0].ErrorMessage != "timeout" || all[0].Success {
		t.Errorf("failed event = %+v", all[0])
	}

	gen, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "worksheet-gen", Limit: 1})
	if err != nil {
		t.Fatalf("query purpose: %v", err)
	}
	if len(gen) != 1 || gen[0].Purpose != "worksheet-gen" {
		t.Errorf("filtered = %+v", gen)
	}

	got, err := repo.GetLLMEvent(ctx, all[2].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.RequestBody != "prompt" || got.ResponseBody != "{}" {
		t.Errorf("get = %+v", got)
	}
	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil || missing != nil {
		t.Errorf("get missing = %+v, %v", missing, err)
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage by purpose: %v", err)
	}
	if len(byPurpose) != 2 {
		t.Fatalf("purposes = %+v", byPurpose)
	}
	gu := byPurpose[0]
	if gu.Key != "worksheet-gen" || gu.Calls != 2 || gu.InputTokens != 220 || gu.OutputTokens != 780 || gu.AvgLatencyMs != 2000 {
		t.Errorf("worksheet-gen usage = %+v", gu)
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage by model: %v", err)
	}
	if len(byModel) != 1 || byModel[0].Calls != 3 {
		t.Errorf("by model = %+v", byModel)
	}
}
