package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/cohort/internal/prefs"
	"github.com/five82/cohort/internal/realtime"
	"github.com/five82/cohort/internal/state"
	"github.com/five82/cohort/internal/training"
)

var refNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeActions struct {
	created  []training.ModuleInput
	updated  map[string]map[string]any
	deleted  []string
	attended map[string]map[string]any
	sent     []training.MessageInput
	read     []string
	err      error
}

func newFakeActions() *fakeActions {
	return &fakeActions{
		updated:  map[string]map[string]any{},
		attended: map[string]map[string]any{},
	}
}

func (f *fakeActions) CreateModule(_ context.Context, in training.ModuleInput) (string, error) {
	f.created = append(f.created, in)
	return "m-new", f.err
}

func (f *fakeActions) UpdateModule(_ context.Context, id string, fields map[string]any) error {
	f.updated[id] = fields
	return f.err
}

func (f *fakeActions) DeleteModule(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeActions) UpdateAttendance(_ context.Context, id string, fields map[string]any) error {
	f.attended[id] = fields
	return f.err
}

func (f *fakeActions) SendMessage(_ context.Context, in training.MessageInput) (string, error) {
	f.sent = append(f.sent, in)
	return "msg-new", f.err
}

func (f *fakeActions) MarkMessageRead(_ context.Context, id string) error {
	f.read = append(f.read, id)
	return f.err
}

type fakeConn struct {
	state realtime.ConnectionState
}

func (c *fakeConn) State() realtime.ConnectionState { return c.state }

func (c *fakeConn) MarkOnline(context.Context) {
	c.state.Online = true
	c.state.Quality = realtime.QualityGood
}

func (c *fakeConn) MarkOffline(context.Context) {
	c.state.Online = false
	c.state.Quality = realtime.QualityOffline
}

func adminSnapshot() state.Snapshot {
	return state.Snapshot{
		User:    training.User{ID: "admin", Name: "Admin", Role: training.RoleAdmin},
		HasUser: true,
		Modules: []training.Module{
			{ID: "m-1", Name: "Rigging", Status: training.StatusInProgress, Created: refNow.Add(-2 * time.Hour)},
			{ID: "m-2", Name: "Safety", Status: training.StatusCompleted, Created: refNow.Add(-48 * time.Hour)},
		},
		Attendance: []training.Attendance{
			{ID: "a-1", TraineeName: "Ada", Module: "Rigging", Date: "2025-03-10", Status: training.Present},
		},
		Messages: []training.Message{
			{ID: "msg-1", SenderID: "t-ada", SenderName: "Ada", Subject: "Question", Body: "When?", Date: refNow.Add(-time.Hour)},
			{ID: "msg-2", SenderID: "t-ada", SenderName: "Ada", Subject: "Thanks", Read: true},
		},
		Trainees:   []training.User{{ID: "t-ada", Name: "Ada"}},
		Connection: realtime.ConnectionState{Online: true, Quality: realtime.QualityGood},
	}
}

func newTestModel(t *testing.T, snap state.Snapshot) (Model, *fakeActions, *fakeConn) {
	t.Helper()
	actions := newFakeActions()
	conn := &fakeConn{state: realtime.ConnectionState{Online: true, Quality: realtime.QualityGood}}
	m := New(Options{
		Actions:    actions,
		Connection: conn,
		PrefsPath:  filepath.Join(t.TempDir(), "prefs.toml"),
	})
	m.now = func() time.Time { return refNow }
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = update(t, m, snapshotMsg(snap))
	return m, actions, conn
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// press sends each key and returns the model and the last command.
func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m, _ = press(t, m, string(r))
	}
	return m
}

func runResult(t *testing.T, cmd tea.Cmd) actionResultMsg {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command, got nil")
	}
	res, ok := cmd().(actionResultMsg)
	if !ok {
		t.Fatalf("command did not produce actionResultMsg")
	}
	return res
}

func TestParseView_RoundTrip(t *testing.T) {
	for v := View(0); v < viewCount; v++ {
		if got := ParseView(v.String()); got != v {
			t.Fatalf("ParseView(%q) = %v, want %v", v.String(), got, v)
		}
	}
	if got := ParseView(" Modules "); got != ViewModules {
		t.Fatalf("ParseView trims and lowercases, got %v", got)
	}
	if got := ParseView("unknown"); got != ViewDashboard {
		t.Fatalf("ParseView(unknown) = %v, want dashboard", got)
	}
}

func TestTabCyclesViewsAndSavesPrefs(t *testing.T) {
	m, _, _ := newTestModel(t, adminSnapshot())

	m, _ = press(t, m, "tab")
	if m.currentView != ViewModules {
		t.Fatalf("after tab view = %v, want modules", m.currentView)
	}
	m, _ = press(t, m, "shift+tab", "shift+tab")
	if m.currentView != ViewLogs {
		t.Fatalf("after shift+tab twice view = %v, want logs", m.currentView)
	}
	m, _ = press(t, m, "3")
	if m.currentView != ViewAttendance {
		t.Fatalf("after 3 view = %v, want attendance", m.currentView)
	}

	p, err := prefs.Load(m.prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if p.View != "attendance" {
		t.Fatalf("saved view = %q, want attendance", p.View)
	}
}

func TestCycleThemePersists(t *testing.T) {
	m, _, _ := newTestModel(t, adminSnapshot())
	m, _ = press(t, m, "T")
	if m.theme.Name != "Kanagawa" {
		t.Fatalf("theme = %q, want Kanagawa", m.theme.Name)
	}
	p, _ := prefs.Load(m.prefsPath)
	if p.Theme != "Kanagawa" {
		t.Fatalf("saved theme = %q, want Kanagawa", p.Theme)
	}
}

func TestListNavigationClamps(t *testing.T) {
	m, _, _ := newTestModel(t, adminSnapshot())
	m, _ = press(t, m, "2", "j", "j", "j")
	if got := m.cursor[ViewModules]; got != 1 {
		t.Fatalf("cursor = %d, want 1", got)
	}
	m, _ = press(t, m, "g")
	if got := m.cursor[ViewModules]; got != 0 {
		t.Fatalf("cursor after g = %d, want 0", got)
	}

	m, _ = press(t, m, "G")
	snap := adminSnapshot()
	snap.Modules = snap.Modules[:1]
	m = update(t, m, snapshotMsg(snap))
	if got := m.cursor[ViewModules]; got != 0 {
		t.Fatalf("cursor after shrink = %d, want 0", got)
	}
}

func TestCreateModuleThroughForm(t *testing.T) {
	m, actions, _ := newTestModel(t, adminSnapshot())
	m, _ = press(t, m, "2", "n")
	if m.modal == nil {
		t.Fatalf("expected form modal")
	}

	m = typeText(t, m, "Knots")
	m, _ = press(t, m, "enter")
	m = typeText(t, m, "Bowline")
	m, cmd := press(t, m, "enter")
	if m.modal != nil {
		t.Fatalf("modal should close on submit")
	}

	res := runResult(t, cmd)
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if len(actions.created) != 1 || actions.created[0].Name != "Knots" || actions.created[0].Description != "Bowline" {
		t.Fatalf("created = %+v", actions.created)
	}

	m = update(t, m, res)
	if m.status != "created Knots" || m.statusErr {
		t.Fatalf("status = %q err=%v", m.status, m.statusErr)
	}
}

func TestFormEscapeCancels(t *testing.T) {
	m, actions, _ := newTestModel(t, adminSnapshot())
	m, _ = press(t, m, "2", "n", "x", "esc")
	if m.modal != nil {
		t.Fatalf("esc should close the form")
	}
	if len(actions.created) != 0 || len(actions.deleted) != 0 {
		t.Fatalf("cancelled form must not write: %+v %+v", actions.created, actions.deleted)
	}
	if m.currentView != ViewModules {
		t.Fatalf("esc inside the form must not leave the view, got %v", m.currentView)
	}
}

func TestToggleModuleStatusAndDelete(t *testing.T) {
	m, actions, _ := newTestModel(t, adminSnapshot())

	m, cmd := press(t, m, "2", "c")
	runResult(t, cmd)
	if got := actions.updated["m-1"]["status"]; got != training.StatusCompleted {
		t.Fatalf("m-1 status = %v, want Completed", got)
	}

	m, cmd = press(t, m, "j", "c")
	runResult(t, cmd)
	if got := actions.updated["m-2"]["status"]; got != training.StatusInProgress {
		t.Fatalf("m-2 status = %v, want In Progress", got)
	}

	_, cmd = press(t, m, "x")
	runResult(t, cmd)
	if len(actions.deleted) != 1 || actions.deleted[0] != "m-2" {
		t.Fatalf("deleted = %v", actions.deleted)
	}
}

func TestTraineeCannotEditModules(t *testing.T) {
	snap := adminSnapshot()
	snap.User = training.User{ID: "t-ada", Name: "Ada", Role: training.RoleTrainee}
	m, actions, _ := newTestModel(t, snap)

	m, cmd := press(t, m, "2", "n")
	if m.modal != nil || cmd != nil {
		t.Fatalf("trainee should not get the module form")
	}
	if !m.statusErr || !strings.Contains(m.status, "admins") {
		t.Fatalf("status = %q, want admin-only notice", m.status)
	}
	_, cmd = press(t, m, "x")
	if cmd != nil || len(actions.deleted) != 0 {
		t.Fatalf("trainee delete should be ignored")
	}
}

func TestCycleAttendance(t *testing.T) {
	m, actions, _ := newTestModel(t, adminSnapshot())
	_, cmd := press(t, m, "3", "s")
	runResult(t, cmd)
	if got := actions.attended["a-1"]["status"]; got != training.Late {
		t.Fatalf("status = %v, want Late", got)
	}

	if nextAttendanceStatus(training.Late) != training.Absent || nextAttendanceStatus(training.Absent) != training.Present {
		t.Fatalf("attendance cycle broken")
	}
}

func TestMessagesMarkReadAndReply(t *testing.T) {
	m, actions, _ := newTestModel(t, adminSnapshot())

	m, cmd := press(t, m, "5", "enter")
	runResult(t, cmd)
	if len(actions.read) != 1 || actions.read[0] != "msg-1" {
		t.Fatalf("read = %v", actions.read)
	}

	m, cmd = press(t, m, "j", "enter")
	if cmd != nil {
		t.Fatalf("already-read message should not issue a write")
	}

	m, _ = press(t, m, "n")
	form, ok := m.modal.(*formModal)
	if !ok {
		t.Fatalf("expected message form")
	}
	if got := form.Values()["to"]; got != "t-ada" {
		t.Fatalf("reply recipient = %q, want t-ada", got)
	}
	m = typeText(t, m, "Re")
	m, _ = press(t, m, "enter")
	m = typeText(t, m, "Soon")
	_, cmd = press(t, m, "enter")
	runResult(t, cmd)
	if len(actions.sent) != 1 {
		t.Fatalf("sent = %+v", actions.sent)
	}
	sent := actions.sent[0]
	if sent.RecipientID != "t-ada" || sent.Subject != "Re" || sent.Body != "Soon" || sent.SenderID != "admin" {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestActionErrorShownInStatus(t *testing.T) {
	m, _, _ := newTestModel(t, adminSnapshot())
	m = update(t, m, actionResultMsg{text: "created", err: errors.New("create module: name is required")})
	if !m.statusErr || m.status != "create module: name is required" {
		t.Fatalf("status = %q err=%v", m.status, m.statusErr)
	}
	if !strings.Contains(m.renderStatusLine(), "name is required") {
		t.Fatalf("status line missing error")
	}
}

func TestToggleOffline(t *testing.T) {
	m, _, conn := newTestModel(t, adminSnapshot())
	_, cmd := press(t, m, "o")
	res := runResult(t, cmd)
	if res.text != "working offline" || !conn.state.Offline() {
		t.Fatalf("expected offline, got %q %+v", res.text, conn.state)
	}
	_, cmd = press(t, m, "o")
	res = runResult(t, cmd)
	if res.text != "back online" || conn.state.Offline() {
		t.Fatalf("expected online, got %q %+v", res.text, conn.state)
	}
}

func TestConnectionLabel(t *testing.T) {
	cases := []struct {
		name   string
		snap   state.Snapshot
		label  string
		status string
	}{
		{"live", state.Snapshot{Connection: realtime.ConnectionState{Online: true, Quality: realtime.QualityGood}}, "LIVE", "good"},
		{"slow", state.Snapshot{Connection: realtime.ConnectionState{Online: true, Quality: realtime.QualitySlow, Latency: 320 * time.Millisecond}}, "SLOW 320ms", "slow"},
		{"offline", state.Snapshot{Connection: realtime.ConnectionState{Online: false, Quality: realtime.QualityOffline}}, "OFFLINE", "offline"},
		{"roster failures", state.Snapshot{Connection: realtime.ConnectionState{Online: true, Quality: realtime.QualityGood}, ConsecutiveFailures: 2}, "OFFLINE", "offline"},
		{"suspended", state.Snapshot{Connection: realtime.ConnectionState{Online: true, Suspended: true}}, "PAUSED", "paused"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			label, status := connectionLabel(tc.snap)
			if label != tc.label || status != tc.status {
				t.Fatalf("connectionLabel = %q/%q, want %q/%q", label, status, tc.label, tc.status)
			}
		})
	}
}

func TestViewsRender(t *testing.T) {
	m, _, _ := newTestModel(t, adminSnapshot())
	want := map[View]string{
		ViewDashboard:   "Recent activity",
		ViewModules:     "Modules (2)",
		ViewAttendance:  "Attendance (1)",
		ViewAssessments: "No assessments",
		ViewMessages:    "Inbox (1 unread)",
		ViewLogs:        "Logging to file is disabled",
	}
	for v, text := range want {
		m.currentView = v
		out := m.View()
		if !strings.Contains(out, "cohort") {
			t.Fatalf("%v: header missing", v)
		}
		if !strings.Contains(out, text) {
			t.Fatalf("%v: output missing %q", v, text)
		}
	}

	m.showHelp = true
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatalf("help overlay missing")
	}
}

func TestTraineeDashboardRenders(t *testing.T) {
	snap := adminSnapshot()
	snap.User = training.User{ID: "t-ada", Name: "Ada", Role: training.RoleTrainee}
	m, _, _ := newTestModel(t, snap)
	out := m.View()
	if !strings.Contains(out, "My progress") || !strings.Contains(out, "50%") {
		t.Fatalf("trainee dashboard missing progress: %q", out)
	}
}

func TestLogsViewReadsLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.log")
	body := strings.Join([]string{
		`time=2025-03-10T12:00:00Z level=debug msg="probe ok"`,
		`time=2025-03-10T12:00:01Z level=info prefix=realtime msg="listener resumed" key=modules`,
		`time=2025-03-10T12:00:02Z level=warn msg="listener error" code=unavailable`,
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, _, _ := newTestModel(t, adminSnapshot())
	m.logPath = path
	m, cmd := press(t, m, "6")
	if cmd == nil {
		t.Fatalf("entering logs should read the file")
	}
	msg, ok := cmd().(logsMsg)
	if !ok || msg.err != nil {
		t.Fatalf("logs command = %+v", msg)
	}
	if len(msg.entries) != 2 {
		t.Fatalf("entries = %d, want 2 at info and above", len(msg.entries))
	}
	m = update(t, m, msg)
	if !strings.Contains(m.View(), "listener resumed") {
		t.Fatalf("logs view missing entry")
	}

	m, cmd = press(t, m, "f")
	if m.logs.minLevel != "warn" || cmd == nil {
		t.Fatalf("f should raise level to warn, got %q", m.logs.minLevel)
	}
	if p, _ := prefs.Load(m.prefsPath); p.LogLevel != "warn" {
		t.Fatalf("saved log level = %q, want warn", p.LogLevel)
	}
	m, _ = press(t, m, " ")
	if m.logs.follow {
		t.Fatalf("space should pause follow")
	}
}

func TestFormatAgo(t *testing.T) {
	cases := map[time.Duration]string{
		30 * time.Second:    "just now",
		5 * time.Minute:     "5m ago",
		3 * time.Hour:       "3h ago",
		48 * time.Hour:      "2d ago",
		10 * 24 * time.Hour: "2025-02-28",
	}
	for ago, want := range cases {
		if got := formatAgo(refNow.Add(-ago), refNow); got != want {
			t.Fatalf("formatAgo(-%v) = %q, want %q", ago, got, want)
		}
	}
	if got := formatAgo(time.Time{}, refNow); got != "-" {
		t.Fatalf("formatAgo(zero) = %q", got)
	}
}

func TestTruncateAndProgressBar(t *testing.T) {
	if got := truncate("Electrical Isolation", 10); got != "Electri..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	if got := progressBar(50, 10); got != "█████░░░░░" {
		t.Fatalf("progressBar(50) = %q", got)
	}
	if got := progressBar(150, 4); got != "████" {
		t.Fatalf("progressBar clamps, got %q", got)
	}
}

func TestThemes(t *testing.T) {
	if NextTheme("Slate") != "Nightfox" || NextTheme("missing") != "Nightfox" {
		t.Fatalf("theme cycle broken")
	}
	th := GetTheme("missing")
	if th.Name != "Nightfox" {
		t.Fatalf("GetTheme fallback = %q", th.Name)
	}
	if th.StatusColor(" In Progress ") != th.StatusColors["in progress"] {
		t.Fatalf("StatusColor should normalize case and space")
	}
	if th.StatusColor("nope") != th.Text {
		t.Fatalf("unknown status should use Text")
	}
	for _, name := range ThemeNames() {
		if len(GetTheme(name).StatusColors) == 0 {
			t.Fatalf("%s has no status colors", name)
		}
	}
}
