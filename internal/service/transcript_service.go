package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/academics"
	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type studentDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// TranscriptService assembles full academic transcripts from approved
// grades. A transcript shows every approved attempt; the repeat rule only
// decides which attempt carries the course's contribution.
type TranscriptService struct {
	students studentDetailReader
	attempts attemptsReader
	policies policyProvider
	logger   *zap.Logger
	now      func() time.Time
}

// NewTranscriptService constructs TranscriptService.
func NewTranscriptService(students studentDetailReader, attempts attemptsReader, policies policyProvider, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{
		students: students,
		attempts: attempts,
		policies: policies,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BuildTranscript returns the student's transcript: per-session course rows
// with session GPAs and the CGPA footer. Sessions are ordered
// chronologically and rows within a session by semester, then course code.
func (s *TranscriptService) BuildTranscript(ctx context.Context, studentID string) (*models.Transcript, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	config, err := s.policies.Config(ctx)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindDetailByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	attempts, err := s.attempts.ListAttempts(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course attempts")
	}

	now := s.now()
	standing := config.ComputeStanding(studentID, attempts, now)

	sorted := make([]models.CourseAttempt, len(attempts))
	copy(sorted, attempts)
	academics.SortAttempts(sorted)

	// The latest attempt per course is the one the repeat rule counts.
	lastIndex := make(map[string]int, len(sorted))
	for i, attempt := range sorted {
		lastIndex[attempt.CourseID] = i
	}

	sessionGPA := make(map[string]float64, len(standing.Sessions))
	for _, session := range standing.Sessions {
		sessionGPA[session.SessionID] = session.GPA
	}

	var sessions []models.TranscriptSession
	sessionIdx := make(map[string]int)
	for i, attempt := range sorted {
		idx, ok := sessionIdx[attempt.SessionID]
		if !ok {
			sessions = append(sessions, models.TranscriptSession{
				SessionID:   attempt.SessionID,
				SessionName: attempt.SessionName,
				GPA:         sessionGPA[attempt.SessionID],
			})
			idx = len(sessions) - 1
			sessionIdx[attempt.SessionID] = idx
		}
		sessions[idx].Rows = append(sessions[idx].Rows, models.TranscriptRow{
			CourseCode:  attempt.CourseCode,
			CourseTitle: attempt.CourseTitle,
			Units:       attempt.Units,
			Semester:    attempt.Semester,
			TotalScore:  attempt.TotalScore,
			Letter:      attempt.Letter,
			GradePoint:  attempt.GradePoint,
			Counted:     lastIndex[attempt.CourseID] == i,
		})
	}
	for i := range sessions {
		rows := sessions[i].Rows
		sort.SliceStable(rows, func(a, b int) bool {
			if ao, bo := rows[a].Semester.Order(), rows[b].Semester.Order(); ao != bo {
				return ao < bo
			}
			return rows[a].CourseCode < rows[b].CourseCode
		})
	}

	return &models.Transcript{
		Student:        *student,
		Sessions:       sessions,
		CGPA:           standing.CGPA,
		UnitsAttempted: standing.UnitsAttempted,
		UnitsPassed:    standing.UnitsPassed,
		GeneratedAt:    now,
	}, nil
}
