// Package dialog implements the bounded per-user conversation history
// backing the assistant endpoint.
package dialog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sfedu-digital/campus-assistant/internal/logger"
)

// Speaker identifies who produced a dialog turn.
type Speaker string

const (
	// SpeakerUser marks a turn written by the user.
	SpeakerUser Speaker = "user"
	// SpeakerAssistant marks a turn written by the assistant.
	SpeakerAssistant Speaker = "assistant"
)

// Speaker labels used in the history file and the rendered context.
const (
	labelUser      = "Пользователь"
	labelAssistant = "Ассистент"
)

// fileMode is the permission for the history file.
const fileMode = 0o644

// legacyTimeLayout matches the offset-less timestamps in history files
// written by the previous system.
const legacyTimeLayout = "2006-01-02T15:04:05.999999999"

// Label returns the display label for the speaker.
func (s Speaker) Label() string {
	if s == SpeakerAssistant {
		return labelAssistant
	}
	return labelUser
}

// Turn is one message in a dialog session.
type Turn struct {
	Timestamp time.Time
	Speaker   Speaker
	Text      string
}

// MarshalJSON encodes the turn as ["<RFC3339 timestamp>", "<label>: <text>"].
func (t Turn) MarshalJSON() ([]byte, error) {
	pair := [2]string{
		t.Timestamp.Format(time.RFC3339),
		t.Speaker.Label() + ": " + t.Text,
	}
	return json.Marshal(pair)
}

// UnmarshalJSON decodes the ["timestamp", "label: text"] pair form.
// A line without a known speaker label is kept verbatim as a user turn.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}

	ts, err := time.Parse(time.RFC3339, pair[0])
	if err != nil {
		// History files written by the previous system carry naive local
		// timestamps with microseconds and no offset.
		ts, err = time.ParseInLocation(legacyTimeLayout, pair[0], time.Local)
		if err != nil {
			return fmt.Errorf("parse turn timestamp: %w", err)
		}
	}
	t.Timestamp = ts

	switch {
	case strings.HasPrefix(pair[1], labelUser+": "):
		t.Speaker = SpeakerUser
		t.Text = strings.TrimPrefix(pair[1], labelUser+": ")
	case strings.HasPrefix(pair[1], labelAssistant+": "):
		t.Speaker = SpeakerAssistant
		t.Text = strings.TrimPrefix(pair[1], labelAssistant+": ")
	default:
		t.Speaker = SpeakerUser
		t.Text = pair[1]
	}

	return nil
}

// Line renders the turn as "<label>: <text>".
func (t Turn) Line() string {
	return t.Speaker.Label() + ": " + t.Text
}

// Store owns the mapping from user id to session, with a JSON file as the
// sole durable backing store. The store is single-process: Load runs once at
// startup and Save after every mutating request.
type Store struct {
	path       string
	maxHistory int
	log        logger.Interface

	mu        sync.RWMutex
	sessions  map[string][]Turn
	userLocks map[string]*sync.Mutex
}

// NewStore creates a dialog store backed by the given file path.
func NewStore(path string, maxHistory int, log logger.Interface) *Store {
	return &Store{
		path:       path,
		maxHistory: maxHistory,
		log:        log,
		sessions:   make(map[string][]Turn),
		userLocks:  make(map[string]*sync.Mutex),
	}
}

// LockUser acquires the per-user lock and returns its release function.
// Callers hold it across the whole append -> complete -> append -> save
// cycle so concurrent requests for the same user cannot interleave.
func (s *Store) LockUser(userID string) func() {
	s.mu.Lock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Append adds a turn to the user's session, creating the session on first
// use. When the session exceeds the bound, the oldest turns are evicted.
func (s *Store) Append(userID string, speaker Speaker, text string, timestamp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := append(s.sessions[userID], Turn{
		Timestamp: timestamp,
		Speaker:   speaker,
		Text:      text,
	})

	if len(session) > s.maxHistory {
		evicted := len(session) - s.maxHistory
		session = session[evicted:]
		s.log.Debug("Trimmed dialog history",
			"user_id", userID,
			"evicted", evicted,
			"max_history", s.maxHistory,
		)
	}

	s.sessions[userID] = session
}

// RenderContext returns the session as newline-joined "<label>: <text>"
// lines in chronological order. An absent session renders as "".
func (s *Store) RenderContext(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session := s.sessions[userID]
	lines := make([]string, len(session))
	for i, turn := range session {
		lines[i] = turn.Line()
	}

	return strings.Join(lines, "\n")
}

// Session returns a copy of the user's session.
func (s *Store) Session(userID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session := s.sessions[userID]
	out := make([]Turn, len(session))
	copy(out, session)
	return out
}

// Load reads the history file into memory, replacing current state.
// A missing file is initialized empty.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.log.Info("Dialog history file not found, starting empty", "path", s.path)
		return s.Save()
	}
	if err != nil {
		return fmt.Errorf("read dialog history: %w", err)
	}

	sessions := make(map[string][]Turn)
	if unmarshalErr := json.Unmarshal(data, &sessions); unmarshalErr != nil {
		return fmt.Errorf("parse dialog history: %w", unmarshalErr)
	}

	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()

	return nil
}

// Save writes the full in-memory state to the history file, overwriting
// prior content.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := encodeSessions(s.sessions)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal dialog history: %w", err)
	}

	// Write through a temp file so a crash mid-save never leaves a
	// truncated history behind.
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, writeErr := tmp.Write(data); writeErr != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write dialog history: %w", writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close dialog history: %w", closeErr)
	}
	if chmodErr := os.Chmod(tmp.Name(), fileMode); chmodErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod dialog history: %w", chmodErr)
	}
	if renameErr := os.Rename(tmp.Name(), s.path); renameErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace dialog history: %w", renameErr)
	}

	return nil
}

// encodeSessions encodes the session map with four-space indentation and
// HTML escaping off, matching the snapshot file conventions.
func encodeSessions(sessions map[string][]Turn) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(sessions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
