package giveaway

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"log/slog"
	mrand "math/rand"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/sync/errgroup"
)

const (
	MinWinners     = 1
	MaxWinners     = 25
	MaxNameLen     = 100
	MaxDescription = 1000
	idLength       = 8

	// Bound on concurrent overdue closures during the recovery sweep.
	recoverParallelism = 4
)

// CreateRequest is the validated shape of the setup form. The handler
// parses the raw modal fields into it before the engine sees anything.
type CreateRequest struct {
	Name        string
	Description string
	ImageURL    string
	WinnerCount int
	EndTimeText string
	TagEveryone bool
	CreatedBy   snowflake.ID
	GuildID     snowflake.ID
	ChannelID   snowflake.ID
}

// Manager is the lifecycle engine: it owns every Active → Closed
// transition and the timers that drive automatic ones.
type Manager struct {
	repo      *Repository
	announcer Announcer
	scheduler *Scheduler

	parseEndTime func(s string, now time.Time) (time.Time, error)
	now          func() time.Time
}

func NewManager(repo *Repository, announcer Announcer, parseEndTime func(string, time.Time) (time.Time, error)) *Manager {
	m := &Manager{
		repo:         repo,
		announcer:    announcer,
		parseEndTime: parseEndTime,
		now:          time.Now,
	}
	m.scheduler = NewScheduler(m.autoEnd)
	return m
}

// Create validates the request, posts the announcement, persists the
// new giveaway and arms its auto-close timer. The announcement must
// succeed because its message id is part of the record; persistence
// failing after the post leaves an orphaned message, which is logged
// and surfaced to the operator.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Giveaway, error) {
	now := m.now()

	// Limits are in characters, not bytes; descriptions are often
	// emoji-heavy.
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLen {
		return nil, validationErrorf("giveaway name must be 1-%d characters", MaxNameLen)
	}
	if req.Description == "" || utf8.RuneCountInString(req.Description) > MaxDescription {
		return nil, validationErrorf("description must be 1-%d characters", MaxDescription)
	}
	if req.WinnerCount < MinWinners || req.WinnerCount > MaxWinners {
		return nil, validationErrorf("Winners must be a number between %d and %d!", MinWinners, MaxWinners)
	}
	if req.ImageURL != "" && !strings.HasPrefix(req.ImageURL, "https://") {
		return nil, validationErrorf("Image URL must start with https://")
	}

	endTime, err := m.parseEndTime(req.EndTimeText, now)
	if err != nil {
		return nil, validationErrorf("Invalid time format! Use format like \"2:30PM\" or \"11:45AM\"")
	}

	id, err := newGiveawayID()
	if err != nil {
		return nil, err
	}

	g := &Giveaway{
		ID:           id,
		Name:         name,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		WinnerCount:  req.WinnerCount,
		EndTime:      endTime.UnixMilli(),
		Participants: []snowflake.ID{},
		CreatedBy:    req.CreatedBy,
		CreatedAt:    now,
		GuildID:      req.GuildID,
		ChannelID:    req.ChannelID,
	}

	messageID, err := m.announcer.AnnounceCreated(ctx, g, req.TagEveryone)
	if err != nil {
		return nil, fmt.Errorf("failed to announce giveaway: %w", err)
	}
	g.MessageID = messageID

	if err := m.repo.CreateActive(ctx, g); err != nil {
		slog.Error("Giveaway announced but not persisted, announcement is orphaned",
			slog.String("giveaway_id", g.ID),
			slog.String("message_id", messageID.String()),
			slog.Any("error", err))
		return nil, err
	}

	m.scheduler.Arm(g.ID, endTime)

	slog.Info("Giveaway created",
		slog.String("giveaway_id", g.ID),
		slog.String("name", g.Name),
		slog.Int("winners", g.WinnerCount),
		slog.Time("end_time", endTime))

	return g, nil
}

// Enroll adds a user to the participant set. Enrolling twice returns
// ErrAlreadyEnrolled and changes nothing.
func (m *Manager) Enroll(ctx context.Context, id string, userID snowflake.ID) (*Giveaway, error) {
	g, err := m.repo.UpdateActive(ctx, id, func(g *Giveaway) error {
		if g.HasParticipant(userID) {
			return ErrAlreadyEnrolled
		}
		g.Participants = append(g.Participants, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := m.announcer.AnnounceUpdated(ctx, g); err != nil {
		slog.Error("Failed to refresh giveaway announcement",
			slog.String("giveaway_id", g.ID),
			slog.Any("error", err))
	}
	return g, nil
}

// EndWithoutWinners closes a giveaway by operator command without a
// draw.
func (m *Manager) EndWithoutWinners(ctx context.Context, id string, operatorID snowflake.ID) (*HistoryRecord, error) {
	return m.close(ctx, id, func(g *Giveaway) (*HistoryRecord, error) {
		return m.record(g, nil, OutcomeEndedNoWinners, operatorID), nil
	})
}

// EndWithWinners closes a giveaway by operator command and draws
// winners; it refuses when nobody enrolled.
func (m *Manager) EndWithWinners(ctx context.Context, id string, operatorID snowflake.ID) (*HistoryRecord, error) {
	return m.close(ctx, id, func(g *Giveaway) (*HistoryRecord, error) {
		if len(g.Participants) == 0 {
			return nil, ErrNoParticipants
		}
		winners := drawWinners(g.Participants, g.WinnerCount)
		return m.record(g, winners, OutcomeEndedWithWinners, operatorID), nil
	})
}

// autoEnd is the deadline transition. A giveaway already closed (and
// therefore gone from the active document) makes this a no-op, which is
// what keeps duplicate timer fires harmless.
func (m *Manager) autoEnd(ctx context.Context, id string) {
	rec, err := m.close(ctx, id, func(g *Giveaway) (*HistoryRecord, error) {
		if len(g.Participants) == 0 {
			return m.record(g, nil, OutcomeEndedNoParticipants, 0), nil
		}
		winners := drawWinners(g.Participants, g.WinnerCount)
		return m.record(g, winners, OutcomeAutoEnded, 0), nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return
		}
		slog.Error("Failed to auto-end giveaway",
			slog.String("giveaway_id", id),
			slog.Any("error", err))
		return
	}

	slog.Info("Giveaway auto-ended",
		slog.String("giveaway_id", id),
		slog.Int("winner_count", len(rec.Winners)))
}

func (m *Manager) close(ctx context.Context, id string, build func(*Giveaway) (*HistoryRecord, error)) (*HistoryRecord, error) {
	rec, err := m.repo.Archive(ctx, id, build)
	if err != nil {
		return nil, err
	}

	m.scheduler.Cancel(id)

	if err := m.announcer.AnnounceClosed(ctx, rec); err != nil {
		slog.Error("Failed to render giveaway closure",
			slog.String("giveaway_id", rec.ID),
			slog.Any("error", err))
	}
	return rec, nil
}

func (m *Manager) record(g *Giveaway, winners []snowflake.ID, outcome Outcome, endedBy snowflake.ID) *HistoryRecord {
	if winners == nil {
		winners = []snowflake.ID{}
	}
	return &HistoryRecord{
		Giveaway: *g,
		EndedAt:  m.now(),
		EndedBy:  endedBy,
		Winners:  winners,
		Outcome:  outcome,
	}
}

// Recover is the startup sweep: it re-arms a timer for every active
// giveaway with a future deadline and immediately closes the overdue
// ones. Timers are in-process only, so this is what makes auto-closure
// survive restarts.
func (m *Manager) Recover(ctx context.Context) error {
	giveaways, err := m.repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active giveaways: %w", err)
	}

	var overdue []string
	now := m.now()
	for _, g := range giveaways {
		if g.EndsAt().After(now) {
			m.scheduler.Arm(g.ID, g.EndsAt())
		} else {
			overdue = append(overdue, g.ID)
		}
	}

	if len(overdue) > 0 {
		var eg errgroup.Group
		eg.SetLimit(recoverParallelism)
		for _, id := range overdue {
			id := id
			eg.Go(func() error {
				m.autoEnd(ctx, id)
				return nil
			})
		}
		_ = eg.Wait()
	}

	slog.Info("Giveaway recovery sweep completed",
		slog.Int("rearmed", len(giveaways)-len(overdue)),
		slog.Int("closed_overdue", len(overdue)))

	return nil
}

// List returns the active giveaways.
func (m *Manager) List(ctx context.Context) ([]*Giveaway, error) {
	return m.repo.ListActive(ctx)
}

// History returns all closed giveaways, oldest first.
func (m *Manager) History(ctx context.Context) ([]*HistoryRecord, error) {
	return m.repo.History(ctx)
}

func (m *Manager) Shutdown() {
	m.scheduler.Shutdown()
}

// drawWinners picks min(count, len(participants)) distinct winners with
// a partial Fisher-Yates shuffle, uniform over subsets.
func drawWinners(participants []snowflake.ID, count int) []snowflake.ID {
	n := min(count, len(participants))
	pool := slices.Clone(participants)
	for i := 0; i < n; i++ {
		j := i + mrand.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n:n]
}

// newGiveawayID generates a short opaque code operators can type into
// the end commands.
func newGiveawayID() (string, error) {
	bytes := make([]byte, 5)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate giveaway id: %w", err)
	}
	return base32.StdEncoding.EncodeToString(bytes)[:idLength], nil
}
