// Package session はCLI/TUIのログイン状態をTOMLファイルに保存します。
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"go-todo-api/pkg/client"
)

// DefaultServer はサーバーURLが未設定のときに使う接続先です。
const DefaultServer = "http://localhost:8080"

// Session はログイン済みのセッションです。
type Session struct {
	Server    string    `toml:"server"`
	Token     string    `toml:"token"`
	UserID    string    `toml:"user_id"`
	Email     string    `toml:"email"`
	ExpiresAt time.Time `toml:"expires_at"`
}

// Valid はトークンがあり期限切れでないかを返します。
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.Token != "" && (s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt))
}

// Store はセッションファイルの読み書きを行います。
type Store struct {
	Path string
	now  func() time.Time
}

// NewStore は path のセッションファイルを扱う Store を作成します。
func NewStore(path string) *Store {
	return &Store{Path: path, now: time.Now}
}

// DefaultPath はユーザー設定ディレクトリ配下のセッションファイルのパスを返します。
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "go-todo", "session.toml"), nil
}

// Load はセッションを読み込みます。ファイルが無い場合は空のセッションを返します。
func (s *Store) Load() (*Session, error) {
	var sess Session
	if _, err := toml.DecodeFile(s.Path, &sess); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Session{}, nil
		}
		return nil, fmt.Errorf("reading session %s: %w", s.Path, err)
	}
	return &sess, nil
}

// Save はセッションを書き込みます。トークンを含むため 0600 で作成します。
func (s *Store) Save(sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	data, err := toml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Clear はトークンを削除し、サーバーURLだけを残します。
func (s *Store) Clear() error {
	sess, err := s.Load()
	if err != nil {
		return err
	}
	return s.Save(&Session{Server: sess.Server})
}

// Token は client.TokenSource を実装します。
// セッションが無いか期限切れの場合は client.ErrNotAuthenticated を返します。
func (s *Store) Token(context.Context) (string, error) {
	sess, err := s.Load()
	if err != nil {
		return "", fmt.Errorf("%w: %v", client.ErrNotAuthenticated, err)
	}
	if !sess.Valid(s.now()) {
		return "", client.ErrNotAuthenticated
	}
	return sess.Token, nil
}
