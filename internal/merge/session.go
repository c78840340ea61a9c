// Package merge holds the per-session state of the merge workflow: the
// upload collector, the ordering store and the wiring that attaches
// asynchronously generated previews to their items.
package merge

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rarepdftool/pdftools/internal/idgen"
	"github.com/rarepdftool/pdftools/internal/models"
	"github.com/rarepdftool/pdftools/internal/preview"
	"github.com/rarepdftool/pdftools/internal/reclaim"
)

// DefaultMaxTotalBytes is the default aggregate size ceiling (60 MiB).
const DefaultMaxTotalBytes int64 = 60 * 1024 * 1024

// Thumbnailer produces previews asynchronously. Each returned channel yields
// one result.
type Thumbnailer interface {
	Submit(ctx context.Context, item models.Item) <-chan preview.Result
}

// Config configures a Session.
type Config struct {
	// MaxTotalBytes caps the summed size of all items (default 60 MiB).
	MaxTotalBytes int64

	// Thumbnails generates previews; nil disables previews.
	Thumbnails Thumbnailer

	// NewID generates item IDs (default UUIDv7).
	NewID idgen.Generator

	Logger *slog.Logger

	// Now is the clock (default time.Now).
	Now func() time.Time
}

func (c *Config) defaults() {
	if c.MaxTotalBytes <= 0 {
		c.MaxTotalBytes = DefaultMaxTotalBytes
	}
	if c.NewID == nil {
		c.NewID = idgen.Default
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Session is one user's merge workspace. All mutations install a new item
// slice under the mutex; slices handed out by Items are never modified.
type Session struct {
	id        string
	cfg       Config
	logger    *slog.Logger
	reclaimer *reclaim.Reclaimer

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	items     []models.Item
	closed    bool
	createdAt time.Time
	updatedAt time.Time

	pending sync.WaitGroup
}

func NewSession(id string, cfg Config) *Session {
	cfg.defaults()
	logger := cfg.Logger.With("session_id", id)
	ctx, cancel := context.WithCancel(context.Background())
	now := cfg.Now()
	return &Session{
		id:        id,
		cfg:       cfg,
		logger:    logger,
		reclaimer: reclaim.New(logger),
		ctx:       ctx,
		cancel:    cancel,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() string { return s.id }

// MaxTotalBytes returns the session's size ceiling
func (s *Session) MaxTotalBytes() int64 { return s.cfg.MaxTotalBytes }

// Items returns the current ordering. The slice must not be modified.
func (s *Session) Items() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

// Item looks up a single item by id
func (s *Session) Item(id string) (models.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexOf(s.items, id)
	if idx < 0 {
		return models.Item{}, false
	}
	return s.items[idx], true
}

func (s *Session) TotalSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalSize(s.items)
}

// UpdatedAt returns the time of the last mutation
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// LivePreviews returns the number of preview handles currently held
func (s *Session) LivePreviews() int {
	return s.reclaimer.Live()
}

func (s *Session) PreviewStats() reclaim.Stats {
	return s.reclaimer.Stats()
}

// Add collects a batch of files. Either the whole batch is appended, in the
// order given, or nothing changes and a *SizeLimitError is returned.
func (s *Session) Add(files []models.FileInput) ([]models.Item, error) {
	if len(files) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}

	existing := totalSize(s.items)
	var incoming int64
	for _, f := range files {
		incoming += int64(len(f.Data))
	}
	if existing+incoming > s.cfg.MaxTotalBytes {
		s.mu.Unlock()
		err := &SizeLimitError{Existing: existing, Incoming: incoming, Ceiling: s.cfg.MaxTotalBytes}
		s.logger.Warn("Rejected batch", "files", len(files), "err", err)
		return nil, err
	}

	now := s.cfg.Now()
	added := make([]models.Item, 0, len(files))
	for _, f := range files {
		label := models.DetectMIME(f.Name, f.MIMEType, f.Data)
		added = append(added, models.Item{
			ID:       s.cfg.NewID(),
			Name:     f.Name,
			MIMEType: label,
			Kind:     models.ClassifyMIME(label),
			Size:     int64(len(f.Data)),
			Source:   f.Data,
			AddedAt:  now,
		})
	}
	s.items = slices.Concat(s.items, added)
	s.updatedAt = now
	if s.cfg.Thumbnails != nil {
		s.pending.Add(len(added))
	}
	s.mu.Unlock()

	s.logger.Info("Added items", "count", len(added), "total_size", existing+incoming)

	if s.cfg.Thumbnails != nil {
		for _, it := range added {
			ch := s.cfg.Thumbnails.Submit(s.ctx, it)
			go func() {
				defer s.pending.Done()
				if res, ok := <-ch; ok {
					s.attach(res)
				}
			}()
		}
	}

	return added, nil
}

// attach joins a preview result to its item. Results for items that are gone
// are released on the spot.
func (s *Session) attach(res preview.Result) {
	s.mu.Lock()
	idx := indexOf(s.items, res.ItemID)
	if idx < 0 || s.closed {
		s.mu.Unlock()
		if res.Handle != nil {
			s.logger.Debug("Discarding preview for removed item", "item_id", res.ItemID)
			if err := res.Handle.Release(); err != nil {
				s.logger.Error("Failed to release orphaned preview", "item_id", res.ItemID, "err", err)
			}
		}
		return
	}

	it := s.items[idx]
	it.Preview = res.Handle
	it.PageCount = res.PageCount
	s.items, _ = replaceItem(s.items, it)
	if res.Handle != nil {
		s.reclaimer.Track(res.Handle)
	}
	s.mu.Unlock()
}

// Move relocates the item to newIndex. It returns false if id is unknown.
func (s *Session) Move(id string, newIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := moveItem(s.items, id, newIndex)
	if !ok {
		return false
	}
	s.items = next
	s.updatedAt = s.cfg.Now()
	return true
}

// Remove drops the item and releases its preview. It returns false if id is
// unknown.
func (s *Session) Remove(id string) bool {
	s.mu.Lock()
	next, _, ok := removeItem(s.items, id)
	if ok {
		s.items = next
		s.updatedAt = s.cfg.Now()
		s.reclaimer.Release(id)
	}
	s.mu.Unlock()

	if ok {
		s.logger.Info("Removed item", "item_id", id)
	}
	return ok
}

// Clear removes every item and returns how many there were. Only the
// previews of the removed items are released; items added afterwards keep
// theirs.
func (s *Session) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.items
	s.items = nil
	s.updatedAt = s.cfg.Now()
	for _, it := range removed {
		s.reclaimer.Release(it.ID)
	}
	return len(removed)
}

// Wait blocks until all in-flight previews have been attached or discarded.
func (s *Session) Wait() {
	s.pending.Wait()
}

// Close tears the session down: in-flight previews are cancelled and
// discarded, and every preview still held is released.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.pending.Wait()
	n := s.Clear()
	if leaked := s.reclaimer.ReleaseAll(); leaked > 0 {
		s.logger.Error("Released previews without an item", "count", leaked)
	}
	s.logger.Info("Session closed", "items", n)
}

// Closed reports whether Close has been called
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// View renders the session for JSON responses. previewURL builds the URL of
// an item's preview.
func (s *Session) View(previewURL func(itemID string) string) models.MergeSession {
	s.mu.RLock()
	items := s.items
	view := models.MergeSession{
		ID:           s.id,
		Items:        make([]models.ItemView, 0, len(items)),
		TotalSize:    totalSize(items),
		MaxTotalSize: s.cfg.MaxTotalBytes,
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
	}
	s.mu.RUnlock()

	for i, it := range items {
		iv := models.ItemView{
			ID:        it.ID,
			Position:  i,
			Name:      it.Name,
			MIMEType:  it.MIMEType,
			Kind:      it.Kind,
			Size:      it.Size,
			PageCount: it.PageCount,
			AddedAt:   it.AddedAt,
		}
		if it.HasPreview() && previewURL != nil {
			iv.PreviewURL = previewURL(it.ID)
		}
		view.Items = append(view.Items, iv)
	}
	view.LivePreviews = s.reclaimer.Live()
	return view
}
