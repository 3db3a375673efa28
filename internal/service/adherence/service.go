package adherence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository"
	"github.com/jwalitptl/reminderd/pkg/logger"
)

const datesKey = "dates_with_records"

// Service answers the calendar surface: which medicines were taken on which
// days. Answers are memoized; the acknowledgment gate invalidates the
// affected day when a record is appended.
type Service struct {
	medicines repository.MedicineRepository
	records   repository.DoseRecordRepository
	cache     *cache.Cache
	logger    *logger.Logger
}

func NewService(medicines repository.MedicineRepository, records repository.DoseRecordRepository, logger *logger.Logger) *Service {
	return &Service{
		medicines: medicines,
		records:   records,
		cache:     cache.New(5*time.Minute, 10*time.Minute),
		logger:    logger.WithComponent("adherence"),
	}
}

// GetDueStatus reports whether a dose record exists for the medicine on the
// given calendar day.
func (s *Service) GetDueStatus(ctx context.Context, medicineID uuid.UUID, date time.Time) (model.DueStatus, error) {
	key := statusKey(medicineID, date)
	if v, ok := s.cache.Get(key); ok {
		return v.(model.DueStatus), nil
	}

	if _, err := s.medicines.Get(ctx, medicineID); err != nil {
		return "", fmt.Errorf("failed to get medicine: %w", err)
	}

	start := startOfDay(date)
	records, err := s.records.ListBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return "", fmt.Errorf("failed to list dose records: %w", err)
	}

	status := model.DueStatusNotTaken
	for _, r := range records {
		if r.MedicineID == medicineID {
			status = model.DueStatusTaken
			break
		}
	}
	s.cache.Set(key, status, cache.DefaultExpiration)
	return status, nil
}

// GetDatesWithAnyRecord returns every calendar day carrying at least one dose
// record, ascending. The calendar grid uses it to mark days.
func (s *Service) GetDatesWithAnyRecord(ctx context.Context) ([]time.Time, error) {
	if v, ok := s.cache.Get(datesKey); ok {
		return v.([]time.Time), nil
	}

	records, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dose records: %w", err)
	}

	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, r := range records {
		day := startOfDay(r.TakenAt)
		if !seen[day] {
			seen[day] = true
			dates = append(dates, day)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	s.cache.Set(datesKey, dates, cache.DefaultExpiration)
	return dates, nil
}

// GetRecords lists the dose records of one calendar day for the day-detail
// view.
func (s *Service) GetRecords(ctx context.Context, date time.Time) ([]*model.DoseRecord, error) {
	start := startOfDay(date)
	records, err := s.records.ListBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list dose records: %w", err)
	}
	return records, nil
}

// InvalidateDay drops cached answers touching the given day.
func (s *Service) InvalidateDay(day time.Time) {
	s.cache.Delete(datesKey)
	prefix := dayKey(day)
	for key := range s.cache.Items() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			s.cache.Delete(key)
		}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func statusKey(medicineID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s:%s", dayKey(date), medicineID)
}
