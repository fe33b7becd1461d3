package cli

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/imagestudio/internal/feature"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
}

func (f *fakeExec) record(name string, args ...string) error {
	if len(args) > 0 {
		name += " " + strings.Join(args, " ")
	}
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	return f.record("register")
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) WhoAmI(ctx context.Context) error { return f.record("whoami") }
func (f *fakeExec) Upload(ctx context.Context, args []string) error {
	return f.record("upload", args...)
}
func (f *fakeExec) SetFeature(args []string) error { return f.record("mode", args...) }
func (f *fakeExec) Submit(ctx context.Context, fe feature.Feature, args []string) error {
	return f.record("submit["+string(fe)+"]", args...)
}
func (f *fakeExec) Show(ctx context.Context) error { return f.record("show") }
func (f *fakeExec) Save(ctx context.Context, args []string) error {
	return f.record("save", args...)
}
func (f *fakeExec) Clear(ctx context.Context) error { return f.record("clear") }
func (f *fakeExec) History(ctx context.Context, args []string) error {
	return f.record("history", args...)
}
func (f *fakeExec) Delete(ctx context.Context, args []string) error {
	return f.record("delete", args...)
}
func (f *fakeExec) Download(ctx context.Context, args []string) error {
	return f.record("download", args...)
}

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, fmt.Sprint(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_Dispatch(t *testing.T) {
	out := captureOutput(t)

	input := strings.Join([]string{
		"help",
		"login",
		"upload ./cat.png",
		"mode restore",
		"submit make it brighter",
		"EDIT add a hat",
		"generate a red bicycle",
		"restore",
		"",
		"show",
		"save out",
		"history beach",
		"download abc out",
		"delete abc",
		"clear",
		"whoami",
		"logout",
		"foobar",
		"exit",
		"show",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, rdr(input))

	assert.Equal(t, []string{
		"login",
		"upload ./cat.png",
		"mode restore",
		"submit[] make it brighter",
		"submit[edit] add a hat",
		"submit[generate] a red bicycle",
		"submit[restore]",
		"show",
		"save out",
		"history beach",
		"download abc out",
		"delete abc",
		"clear",
		"whoami",
		"logout",
	}, exec.calls)

	assert.Contains(t, *out, "Unknown command:foobar")
	assert.Contains(t, *out, "Bye!")
	assert.Contains(t, *out, helpGuest)
}

func TestRunREPL_HelpWhenLoggedIn(t *testing.T) {
	out := captureOutput(t)

	runREPL(context.Background(), &fakeExec{loggedIn: true}, func() string { return "" }, rdr("help\nquit\n"))

	assert.Contains(t, *out, helpMember)
	assert.NotContains(t, *out, helpGuest)
}

func TestRunREPL_LastLineWithoutNewline(t *testing.T) {
	captureOutput(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("show"))

	assert.Equal(t, []string{"show"}, exec.calls)
}
