package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// state消費の失敗種別。
var (
	// ErrUnknownState はstateが未発行、または既に消費済みであることを示す。
	ErrUnknownState = errors.New("unknown oauth state")
	// ErrExpiredState はstateが有効期間を過ぎていることを示す。
	ErrExpiredState = errors.New("oauth state expired")
)

// StateStore はOAuthハンドシェイクのCSRF対策用state値を管理する。
// 各stateは1回だけ消費でき、有効期間を過ぎると失効する。
// 消費されなかった期限切れエントリはバックグラウンドで定期的に破棄される。
type StateStore struct {
	window time.Duration

	mu      sync.Mutex
	entries map[string]time.Time // state値 -> 発行時刻

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewStateStore はStateStoreを生成する。
// windowはstateの有効期間で、0以下の場合はエラーを返す。
// バックグラウンドで期限切れエントリの掃除を開始する。
func NewStateStore(window time.Duration) (*StateStore, error) {
	if window <= 0 {
		return nil, fmt.Errorf("state window must be positive: %v", window)
	}

	s := &StateStore{
		window:  window,
		entries: make(map[string]time.Time),
		stopCh:  make(chan struct{}),
	}

	go s.sweepLoop()

	return s, nil
}

// Issue は暗号的に安全なランダムstate値を発行し、発行時刻とともに記録する。
func (s *StateStore) Issue() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	value := hex.EncodeToString(b)

	s.mu.Lock()
	s.entries[value] = time.Now()
	s.mu.Unlock()

	return value, nil
}

// Consume はstate値を検証し、成功時にエントリを削除する（単回使用）。
// 同じ値への並行Consumeはロック下の削除により高々1回だけ成功する。
// 未発行・消費済みの値にはErrUnknownState、期限切れにはErrExpiredStateを返す。
func (s *StateStore) Consume(value string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt, ok := s.entries[value]
	if !ok {
		return ErrUnknownState
	}

	// 結果にかかわらず単回使用
	delete(s.entries, value)

	if now.Sub(createdAt) > s.window {
		return ErrExpiredState
	}
	return nil
}

// Stop は掃除のバックグラウンドゴルーチンを停止する。
func (s *StateStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// sweepLoop は有効期間を過ぎた未消費エントリを定期的に破棄する。
func (s *StateStore) sweepLoop() {
	ticker := time.NewTicker(s.window)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

// sweep は期限切れエントリを削除する。
func (s *StateStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for value, createdAt := range s.entries {
		if now.Sub(createdAt) > s.window {
			delete(s.entries, value)
		}
	}
}

// size は現在のエントリ数を返す。テスト用。
func (s *StateStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
