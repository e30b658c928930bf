package config

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "arxivrelay/pkg/logx"

	"github.com/fsnotify/fsnotify"
)

const (
	watchDebounce      = 250 * time.Millisecond
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// TopicsManager owns the current topic list. Runs read the last good list
// through Get; Watch swaps in a new list only after it parses and validates.
type TopicsManager struct {
	path string

	mu sync.RWMutex
	tf *TopicsFile

	// subsMu guards subscriber list and ensures we never send on a channel
	// that is concurrently being closed in Unsubscribe().
	subsMu sync.Mutex
	subs   []chan *TopicsFile

	log logx.Logger

	// lastHash tracks the last committed content so editor write bursts
	// without changes do not republish.
	lastHash uint64

	debounce time.Duration
}

func NewTopicsManager(path string) *TopicsManager {
	return &TopicsManager{path: path, log: logx.Nop(), debounce: watchDebounce}
}

func (m *TopicsManager) SetLogger(log logx.Logger) {
	if log.IsZero() {
		log = logx.Nop()
	}
	m.log = log
}

// Path returns the watched file.
func (m *TopicsManager) Path() string { return m.path }

func (m *TopicsManager) Parse() (*TopicsFile, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTopics, err)
	}
	return ParseTopics(m.path, b)
}

func (m *TopicsManager) Commit(tf *TopicsFile) {
	m.mu.Lock()
	m.tf = tf
	m.lastHash = hashTopics(tf)
	m.mu.Unlock()
}

func hashTopics(tf *TopicsFile) uint64 {
	if tf == nil {
		return 0
	}
	b, err := json.Marshal(tf)
	if err != nil {
		return 0
	}
	return hashBytes(b)
}

func (m *TopicsManager) Load() (*TopicsFile, error) {
	tf, err := m.Parse()
	if err != nil {
		return nil, err
	}
	m.Commit(tf)
	return tf, nil
}

// Get returns the last committed list; callers must not mutate it.
func (m *TopicsManager) Get() *TopicsFile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tf
}

func (m *TopicsManager) Subscribe(buffer int) chan *TopicsFile {
	ch := make(chan *TopicsFile, buffer)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

func (m *TopicsManager) Unsubscribe(ch chan *TopicsFile) {
	if ch == nil {
		return
	}
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for i, s := range m.subs {
		if s == ch {
			last := len(m.subs) - 1
			m.subs[i] = m.subs[last]
			m.subs[last] = nil
			m.subs = m.subs[:last]
			close(ch)
			return
		}
	}
}

func (m *TopicsManager) publish(tf *TopicsFile) {
	// Hold subsMu while sending to avoid send-on-closed panics.
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		// Latest wins: a slow subscriber loses the oldest pending list.
		select {
		case ch <- tf:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- tf:
			default:
				m.log.Debug("topics update dropped (subscriber slow)", logx.Int("queue_cap", cap(ch)))
			}
		}
	}
}

// reload parses the file and commits it if it changed. Failures keep the
// previous list.
func (m *TopicsManager) reload() {
	tf, err := m.Parse()
	if err != nil {
		m.log.Warn("topics reload rejected; keeping previous list", logx.String("path", m.path), logx.Err(err))
		return
	}
	h := hashTopics(tf)
	m.mu.RLock()
	unchanged := h != 0 && h == m.lastHash
	m.mu.RUnlock()
	if unchanged {
		m.log.Debug("topics unchanged; skipping publish", logx.String("path", m.path))
		return
	}
	m.Commit(tf)
	m.publish(tf)
	m.log.Info("topics reloaded", logx.String("path", m.path), logx.Int("topics", len(tf.Topics)))
}

// Watch follows the topics file until ctx is done. The directory is watched
// (not the file) so atomic-rename saves are seen.
func (m *TopicsManager) Watch(ctx context.Context) error {
	dir := filepath.Dir(m.path)
	file := filepath.Base(m.path)

	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	nextWait := func() time.Duration {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		return wait
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(m.debounce, m.reload)
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err == nil {
			if err = w.Add(dir); err != nil {
				_ = w.Close()
			}
		}
		if err != nil {
			m.log.Warn("topics watch init failed", logx.Err(err), logx.String("dir", dir))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(nextWait()):
				continue
			}
		}

		backoff = restartBackoffBase
		m.log.Debug("topics watcher started", logx.String("dir", dir), logx.String("file", file))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				if strings.EqualFold(filepath.Base(ev.Name), file) &&
					ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					schedule()
				}
			case err, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				// Overflow means events were lost; reload once and keep going.
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					m.log.Warn("topics watch overflow; forcing reload", logx.Err(err))
					schedule()
					continue
				}
				m.log.Warn("topics watch error", logx.Err(err), logx.String("dir", dir))
			}
		}

		_ = w.Close()
		if ctx.Err() != nil {
			return nil
		}
		wait := nextWait()
		m.log.Warn("topics watcher stopped; restarting", logx.String("dir", dir), logx.Duration("backoff", wait))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}
