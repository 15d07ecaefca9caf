package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hrgate/internal/attendance/models"
	"hrgate/internal/attendance/store"
	"hrgate/internal/audit"
	"hrgate/internal/device"
	gfmodels "hrgate/internal/geofence/models"
	gfservice "hrgate/internal/geofence/service"
	gfstore "hrgate/internal/geofence/store"
	"hrgate/internal/jwttoken"
	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
	"hrgate/pkg/requestcontext"
)

type captureAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureAuditor) Emit(_ context.Context, event audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureAuditor) last() (audit.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return audit.Event{}, false
	}
	return c.events[len(c.events)-1], true
}

func (c *captureAuditor) contains(action audit.Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, event := range c.events {
		if event.Action == action {
			return true
		}
	}
	return false
}

type AttendanceServiceSuite struct {
	suite.Suite

	userID  id.UserID
	records *store.InMemoryStore
	tokens  *jwttoken.Service
	auditor *captureAuditor
	svc     *Service

	insideHQ  gfmodels.Position
	outsideHQ gfmodels.Position
}

func TestAttendanceServiceSuite(t *testing.T) {
	suite.Run(t, new(AttendanceServiceSuite))
}

func (s *AttendanceServiceSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)

	zones := gfstore.NewInMemoryStore()
	geofence := gfservice.New(zones)
	_, err := geofence.CreateLocation(context.Background(), "HQ", 18.5204, 73.8567, 100, "FC Road, Pune", time.Now())
	s.Require().NoError(err)

	schedule := models.Schedule{
		WorkdayStart: models.TimeOfDay{Hour: 9},
		LateAfter:    models.TimeOfDay{Hour: 9, Minute: 30},
	}

	s.userID = id.NewUserID()
	s.records = store.NewInMemoryStore()
	s.tokens = jwttoken.NewService("test-signing-key", "hrgate", "hrgate")
	s.auditor = &captureAuditor{}
	s.svc = New(s.records, geofence, s.tokens, schedule, device.NewService(true), s.auditor, nil, logger)

	s.insideHQ = gfmodels.Position{Latitude: 18.5204, Longitude: 73.8567}
	s.outsideHQ = gfmodels.Position{Latitude: 18.5249, Longitude: 73.8567}
}

// at returns a context whose server clock is fixed to hh:mm UTC on a fixed
// workday.
func (s *AttendanceServiceSuite) at(hour, minute int) context.Context {
	ts := time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
	return requestcontext.WithTime(context.Background(), ts)
}

func (s *AttendanceServiceSuite) TestCheckInInsideZone() {
	record, err := s.svc.CheckIn(s.at(9, 0), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)

	s.Equal(models.StatusPresent, record.Status)
	s.True(record.CheckIn.Verified)
	s.Equal("HQ", record.CheckIn.LocationName)
	s.False(record.CheckInBiometric)
	s.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), record.Day)
}

func (s *AttendanceServiceSuite) TestCheckInAfterThresholdIsLate() {
	record, err := s.svc.CheckIn(s.at(10, 15), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)
	s.Equal(models.StatusLate, record.Status)
}

func (s *AttendanceServiceSuite) TestCheckInAtThresholdIsPresent() {
	record, err := s.svc.CheckIn(s.at(9, 30), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)
	s.Equal(models.StatusPresent, record.Status)
}

func (s *AttendanceServiceSuite) TestCheckInOutsideZoneDenied() {
	_, err := s.svc.CheckIn(s.at(9, 0), s.userID, PunchRequest{Position: s.outsideHQ})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	event, ok := s.auditor.last()
	s.Require().True(ok)
	s.Equal(audit.ActionCheckInDenied, event.Action)
	s.Equal("denied", event.Decision)

	_, err = s.svc.Today(s.at(9, 5), s.userID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *AttendanceServiceSuite) TestCheckInTwiceConflicts() {
	_, err := s.svc.CheckIn(s.at(9, 0), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)

	_, err = s.svc.CheckIn(s.at(9, 10), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *AttendanceServiceSuite) TestCheckInWithProofToken() {
	token, err := s.tokens.GenerateProofToken(s.userID, "cred-1", time.Minute)
	s.Require().NoError(err)

	record, err := s.svc.CheckIn(s.at(9, 0), s.userID, PunchRequest{Position: s.insideHQ, ProofToken: token})
	s.Require().NoError(err)
	s.True(record.CheckInBiometric)
}

func (s *AttendanceServiceSuite) TestCheckInRejectsForeignProofToken() {
	token, err := s.tokens.GenerateProofToken(id.NewUserID(), "cred-1", time.Minute)
	s.Require().NoError(err)

	_, err = s.svc.CheckIn(s.at(9, 0), s.userID, PunchRequest{Position: s.insideHQ, ProofToken: token})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *AttendanceServiceSuite) TestCheckOutWithoutCheckIn() {
	_, err := s.svc.CheckOut(s.at(17, 0), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *AttendanceServiceSuite) TestCheckOutComputesWorkingHours() {
	_, err := s.svc.CheckIn(s.at(9, 0), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)

	record, err := s.svc.CheckOut(s.at(17, 30), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)
	s.InDelta(8.5, record.WorkingHours, 0.001)
	s.True(record.Completed())
	s.Require().NotNil(record.CheckOut)
	s.True(record.CheckOut.Verified)
}

func (s *AttendanceServiceSuite) TestCheckOutBeforeCheckInRejected() {
	_, err := s.svc.CheckIn(s.at(9, 0), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)

	_, err = s.svc.CheckOut(s.at(8, 30), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	record, err := s.svc.Today(s.at(9, 5), s.userID)
	s.Require().NoError(err)
	s.False(record.Completed())
	s.Zero(record.WorkingHours)
}

func (s *AttendanceServiceSuite) TestCheckOutFromDifferentDeviceFlagged() {
	in := requestcontext.WithDevice(s.at(9, 0), "Chrome on Mac OS X", "fp-check-in")
	record, err := s.svc.CheckIn(in, s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)
	s.Equal("fp-check-in", record.DeviceFingerprint)

	out := requestcontext.WithDevice(s.at(17, 0), "Safari on iPhone", "fp-checkout")
	completed, err := s.svc.CheckOut(out, s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)
	s.True(completed.Completed())
	s.True(s.auditor.contains(audit.ActionDeviceChanged))
}

func (s *AttendanceServiceSuite) TestCheckOutSameDeviceNotFlagged() {
	in := requestcontext.WithDevice(s.at(9, 0), "Chrome on Mac OS X", "fp-1")
	_, err := s.svc.CheckIn(in, s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)

	out := requestcontext.WithDevice(s.at(17, 0), "Chrome on Mac OS X", "fp-1")
	_, err = s.svc.CheckOut(out, s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)
	s.False(s.auditor.contains(audit.ActionDeviceChanged))
}

func (s *AttendanceServiceSuite) TestCheckOutTwiceConflicts() {
	_, err := s.svc.CheckIn(s.at(9, 0), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)
	_, err = s.svc.CheckOut(s.at(17, 0), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)

	_, err = s.svc.CheckOut(s.at(18, 0), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *AttendanceServiceSuite) TestCheckOutOutsideZoneDenied() {
	_, err := s.svc.CheckIn(s.at(9, 0), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)

	_, err = s.svc.CheckOut(s.at(17, 0), s.userID, PunchRequest{Position: s.outsideHQ})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	record, err := s.svc.Today(s.at(17, 5), s.userID)
	s.Require().NoError(err)
	s.False(record.Completed())
}

func (s *AttendanceServiceSuite) TestDesignateHalfDay() {
	record, err := s.svc.CheckIn(s.at(9, 0), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)

	updated, err := s.svc.DesignateHalfDay(s.at(13, 0), record.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusHalfDay, updated.Status)
	s.Equal(record.CheckInTime, updated.CheckInTime)

	event, ok := s.auditor.last()
	s.Require().True(ok)
	s.Equal(audit.ActionStatusDesignated, event.Action)
}

func (s *AttendanceServiceSuite) TestHistoryRange() {
	_, err := s.svc.CheckIn(s.at(9, 0), s.userID, PunchRequest{Position: s.insideHQ})
	s.Require().NoError(err)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	records, err := s.svc.History(context.Background(), s.userID, from, to)
	s.Require().NoError(err)
	s.Len(records, 1)

	_, err = s.svc.History(context.Background(), s.userID, to, from)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestScheduleStatus(t *testing.T) {
	schedule := models.Schedule{LateAfter: models.TimeOfDay{Hour: 9, Minute: 30}}
	cases := []struct {
		name string
		at   time.Time
		want models.Status
	}{
		{"early", time.Date(2026, 3, 2, 8, 45, 0, 0, time.UTC), models.StatusPresent},
		{"on the threshold", time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), models.StatusPresent},
		{"one minute past", time.Date(2026, 3, 2, 9, 31, 0, 0, time.UTC), models.StatusLate},
		{"midday", time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), models.StatusLate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := schedule.StatusForCheckIn(tc.at); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
