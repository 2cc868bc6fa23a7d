package collab

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestService_Join_Idempotent(t *testing.T) {
	t.Parallel()

	layoutID, regionID := uuid.New(), uuid.New()
	userID, sessionID := uuid.New(), uuid.New()
	ctx := sessionCtx(userID, sessionID)

	svc, sink, _ := newTestService(&regionRepoMock{}, defaultCfg())

	if err := svc.Join(ctx, layoutID, regionID); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if err := svc.Join(ctx, layoutID, regionID); err != nil {
		t.Fatalf("second join: %v", err)
	}

	events := sink.PresenceUpdatedCalls()
	if len(events) != 2 {
		t.Fatalf("presence-updated events: got %d, want 2", len(events))
	}
	last := events[len(events)-1]
	if len(last.Records) != 1 {
		t.Fatalf("roster size after double join: got %d, want 1", len(last.Records))
	}
	rec := last.Records[0]
	if rec.UserID != userID || rec.SessionID != sessionID || rec.RegionID != regionID {
		t.Errorf("record identity: got %+v", rec)
	}
	if rec.IsEditing {
		t.Error("fresh join must start with isEditing=false")
	}
}

func TestService_JoinAndLeave_Roster(t *testing.T) {
	t.Parallel()

	layoutID, regionID := uuid.New(), uuid.New()
	userA, sessionA := uuid.New(), uuid.New()
	userB, sessionB := uuid.New(), uuid.New()

	svc, sink, _ := newTestService(&regionRepoMock{}, defaultCfg())

	if err := svc.Join(sessionCtx(userA, sessionA), layoutID, regionID); err != nil {
		t.Fatalf("A join: %v", err)
	}
	if err := svc.Join(sessionCtx(userB, sessionB), layoutID, regionID); err != nil {
		t.Fatalf("B join: %v", err)
	}
	if err := svc.Leave(sessionCtx(userA, sessionA), layoutID, regionID); err != nil {
		t.Fatalf("A leave: %v", err)
	}

	events := sink.PresenceUpdatedCalls()
	last := events[len(events)-1]
	if len(last.Records) != 1 || last.Records[0].SessionID != sessionB {
		t.Errorf("roster after A left: got %+v", last.Records)
	}

	// Leaving a region never joined is a no-op.
	if err := svc.Leave(sessionCtx(userA, sessionA), layoutID, uuid.New()); err != nil {
		t.Errorf("leave of unjoined region: %v", err)
	}
}

func TestService_Heartbeat_ExtendsLock(t *testing.T) {
	t.Parallel()

	layoutID, regionID := uuid.New(), uuid.New()
	userA, sessionA := uuid.New(), uuid.New()
	ctxA := sessionCtx(userA, sessionA)

	cfg := defaultCfg()
	svc, _, clock := newTestService(staticRegion(testRegion(regionID, 1)), cfg)

	if res, err := svc.AcquireLock(ctxA, layoutID, regionID); err != nil || !res.Granted {
		t.Fatalf("acquire: res=%+v err=%v", res, err)
	}

	// Heartbeats every interval keep the lock alive well past one TTL.
	for i := 0; i < 5; i++ {
		clock.Advance(cfg.HeartbeatInterval)
		if err := svc.Heartbeat(ctxA); err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
	}

	userB, sessionB := uuid.New(), uuid.New()
	res, err := svc.AcquireLock(sessionCtx(userB, sessionB), layoutID, regionID)
	if err != nil {
		t.Fatalf("B acquire: %v", err)
	}
	if res.Granted {
		t.Error("heartbeats did not keep the lock alive")
	}
}

func TestService_Heartbeat_DoesNotReviveExpiredLock(t *testing.T) {
	t.Parallel()

	layoutID, regionID := uuid.New(), uuid.New()
	userA, sessionA := uuid.New(), uuid.New()
	ctxA := sessionCtx(userA, sessionA)

	cfg := defaultCfg()
	svc, _, clock := newTestService(staticRegion(testRegion(regionID, 1)), cfg)

	if res, err := svc.AcquireLock(ctxA, layoutID, regionID); err != nil || !res.Granted {
		t.Fatalf("acquire: res=%+v err=%v", res, err)
	}

	clock.Advance(cfg.LockTTL + time.Second)
	if err := svc.Heartbeat(ctxA); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	userB, sessionB := uuid.New(), uuid.New()
	res, err := svc.AcquireLock(sessionCtx(userB, sessionB), layoutID, regionID)
	if err != nil {
		t.Fatalf("B acquire: %v", err)
	}
	if !res.Granted {
		t.Error("a late heartbeat revived an expired lock")
	}
}

func TestService_UpdatePresence_FlipsEditing(t *testing.T) {
	t.Parallel()

	layoutID, regionID := uuid.New(), uuid.New()
	userID, sessionID := uuid.New(), uuid.New()
	ctx := sessionCtx(userID, sessionID)

	svc, sink, _ := newTestService(&regionRepoMock{}, defaultCfg())

	if err := svc.Join(ctx, layoutID, regionID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := svc.UpdatePresence(ctx, layoutID, regionID, true); err != nil {
		t.Fatalf("update presence: %v", err)
	}

	events := sink.PresenceUpdatedCalls()
	last := events[len(events)-1]
	if len(last.Records) != 1 || !last.Records[0].IsEditing {
		t.Errorf("roster after flip: got %+v", last.Records)
	}
}

func TestService_Sweep_ReapsExpiredLocksAndStalePresence(t *testing.T) {
	t.Parallel()

	layoutID, regionID := uuid.New(), uuid.New()
	userA, sessionA := uuid.New(), uuid.New()
	userB, sessionB := uuid.New(), uuid.New()

	cfg := defaultCfg()
	svc, sink, clock := newTestService(staticRegion(testRegion(regionID, 1)), cfg)

	if res, err := svc.AcquireLock(sessionCtx(userA, sessionA), layoutID, regionID); err != nil || !res.Granted {
		t.Fatalf("acquire: res=%+v err=%v", res, err)
	}
	if err := svc.Join(sessionCtx(userB, sessionB), layoutID, regionID); err != nil {
		t.Fatalf("B join: %v", err)
	}

	// B keeps heartbeating, A goes silent past both TTLs.
	clock.Advance(cfg.PresenceTTL / 2)
	if err := svc.Heartbeat(sessionCtx(userB, sessionB)); err != nil {
		t.Fatalf("B heartbeat: %v", err)
	}
	clock.Advance(cfg.PresenceTTL/2 + time.Second)
	if err := svc.Heartbeat(sessionCtx(userB, sessionB)); err != nil {
		t.Fatalf("B heartbeat: %v", err)
	}

	svc.Sweep()

	if got := len(sink.LockReleasedCalls()); got != 1 {
		t.Errorf("lock-released events after sweep: got %d, want 1", got)
	}
	events := sink.PresenceUpdatedCalls()
	last := events[len(events)-1]
	if len(last.Records) != 1 || last.Records[0].SessionID != sessionB {
		t.Errorf("roster after sweep: got %+v", last.Records)
	}

	// The reaped lock is acquirable again.
	res, err := svc.AcquireLock(sessionCtx(userB, sessionB), layoutID, regionID)
	if err != nil {
		t.Fatalf("B acquire: %v", err)
	}
	if !res.Granted {
		t.Error("sweep did not free the expired lock")
	}
}

func TestService_DisconnectSession_CleansUp(t *testing.T) {
	t.Parallel()

	layoutID, regionID := uuid.New(), uuid.New()
	userA, sessionA := uuid.New(), uuid.New()

	svc, sink, _ := newTestService(staticRegion(testRegion(regionID, 1)), defaultCfg())

	if res, err := svc.AcquireLock(sessionCtx(userA, sessionA), layoutID, regionID); err != nil || !res.Granted {
		t.Fatalf("acquire: res=%+v err=%v", res, err)
	}

	svc.DisconnectSession(sessionA)

	if got := len(sink.LockReleasedCalls()); got != 1 {
		t.Errorf("lock-released events: got %d, want 1", got)
	}

	userB, sessionB := uuid.New(), uuid.New()
	res, err := svc.AcquireLock(sessionCtx(userB, sessionB), layoutID, regionID)
	if err != nil {
		t.Fatalf("B acquire: %v", err)
	}
	if !res.Granted {
		t.Error("disconnect did not free the session's lock")
	}
}
