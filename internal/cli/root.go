// Package cli はtodoコマンドのサブコマンドを定義します。
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go-todo-api/internal/session"
	"go-todo-api/pkg/client"
)

// app はサブコマンド間で共有する状態です。
type app struct {
	server      string
	sessionPath string
	in          *bufio.Reader
	out         io.Writer

	// readSecret は端末からエコーなしで1行読み取ります。端末でなければ nil です。
	readSecret func() (string, error)
}

// NewRootCmd はルートコマンドを作成します。
func NewRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		a.readSecret = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(a.out)
			return string(b), err
		}
	}

	root := &cobra.Command{
		Use:           "todo",
		Short:         "Manage your todos from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.server, "server", "", "API base URL (default: saved session, $TODO_SERVER or "+session.DefaultServer+")")
	root.PersistentFlags().StringVar(&a.sessionPath, "session", "", "session file path")

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.listCmd(),
		a.addCmd(),
		a.showCmd(),
		a.editCmd(),
		a.completeCmd("done", true),
		a.completeCmd("undo", false),
		a.rmCmd(),
		a.tuiCmd(),
	)
	return root
}

// Execute はコマンドを実行し、プロセスの終了コードを返します。
func Execute(ctx context.Context, args []string) int {
	root := NewRootCmd(os.Stdin, os.Stdout, os.Stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		return 1
	}
	return 0
}

func (a *app) store() (*session.Store, error) {
	path := a.sessionPath
	if path == "" {
		var err error
		if path, err = session.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return session.NewStore(path), nil
}

// resolveServer は --server、保存済みセッション、環境変数、既定値の順に接続先を決めます。
func (a *app) resolveServer(sess *session.Session) string {
	switch {
	case a.server != "":
		return strings.TrimRight(a.server, "/")
	case sess != nil && sess.Server != "":
		return sess.Server
	case os.Getenv("TODO_SERVER") != "":
		return strings.TrimRight(os.Getenv("TODO_SERVER"), "/")
	default:
		return session.DefaultServer
	}
}

// client はセッションのトークンを使うクライアントを返します。
func (a *app) client() (*client.Client, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	sess, err := store.Load()
	if err != nil {
		// 壊れたセッションは未ログインとして扱い、トークン取得時にエラーにします
		sess = &session.Session{}
	}
	return client.New(a.resolveServer(sess), store), nil
}

func (a *app) anonymous() (*client.Client, *session.Store, error) {
	store, err := a.store()
	if err != nil {
		return nil, nil, err
	}
	sess, err := store.Load()
	if err != nil {
		sess = &session.Session{}
	}
	return client.New(a.resolveServer(sess), nil), store, nil
}

// prompt は値が空の場合に標準入力から1行読み取ります。
func (a *app) prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return line, nil
}

// promptSecret は prompt と同じですが、端末ではパスワードを表示しません。
func (a *app) promptSecret(label, value string) (string, error) {
	if value != "" || a.readSecret == nil {
		return a.prompt(label, value)
	}
	fmt.Fprintf(a.out, "%s: ", label)
	secret, err := a.readSecret()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	if secret == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return secret, nil
}

// parseDue は RFC3339 もしくは YYYY-MM-DD (UTC) の期限を解釈します。
func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: use YYYY-MM-DD or RFC3339", s)
	}
	return t, nil
}

func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrNotAuthenticated):
		return "not logged in, run `todo login` first"
	case errors.As(err, &apiErr):
		if apiErr.Details != "" {
			return fmt.Sprintf("%s (%s)", apiErr.Message, apiErr.Details)
		}
		return apiErr.Message
	default:
		return err.Error()
	}
}
