package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"misiones/internal/notification/store/outbox"
	"misiones/internal/platform/sitetx"
	"misiones/internal/registration/models"
	"misiones/internal/registration/store/ledger"
	sitemodels "misiones/internal/site/models"
	sitestore "misiones/internal/site/store/site"
	id "misiones/pkg/domain"
)

func newConcurrentFixture(t *testing.T, capacity int) (*Service, *ledger.InMemory, *outbox.InMemory, id.SiteID) {
	t.Helper()
	ctx := context.Background()
	sites := sitestore.NewInMemory()
	site, err := sitemodels.NewSite(id.NewSiteID(), "Concurrencia", capacity, true, time.Now())
	require.NoError(t, err)
	require.NoError(t, sites.CreateIfNameAvailable(ctx, site))
	regs := ledger.NewInMemory()
	notices := outbox.NewInMemory()
	svc := New(regs, sites, sitetx.NewMemory(5*time.Second), WithNoticeEnqueuer(notices))
	return svc, regs, notices, site.ID
}

func TestRegister_ConcurrentAdmissionsNeverOverbook(t *testing.T) {
	const capacity, extra = 5, 7
	svc, regs, _, siteID := newConcurrentFixture(t, capacity)
	ctx := context.Background()

	var (
		mu       sync.Mutex
		statuses = map[models.Status]int{}
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < capacity+extra; i++ {
		g.Go(func() error {
			res, err := svc.Register(gctx, siteID, request(fmt.Sprintf("R%d", i), fmt.Sprintf("DOC%04d", i)))
			if err != nil {
				return err
			}
			mu.Lock()
			statuses[res.Status]++
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, capacity, statuses[models.StatusConfirmed])
	assert.Equal(t, extra, statuses[models.StatusWaitlisted])
	confirmed, err := regs.CountConfirmed(ctx, siteID)
	require.NoError(t, err)
	assert.Equal(t, capacity, confirmed)
}

func TestCancelAndPromote_ConcurrentCancellationsPromoteDistinctHeads(t *testing.T) {
	const capacity, waiting = 4, 6
	svc, regs, notices, siteID := newConcurrentFixture(t, capacity)
	ctx := context.Background()

	var confirmedIDs, waitlistedIDs []id.RegistrationID
	for i := 0; i < capacity+waiting; i++ {
		res, err := svc.Register(ctx, siteID, request(fmt.Sprintf("R%d", i), fmt.Sprintf("DOC%04d", i)))
		require.NoError(t, err)
		if res.Status == models.StatusConfirmed {
			confirmedIDs = append(confirmedIDs, res.ID)
		} else {
			waitlistedIDs = append(waitlistedIDs, res.ID)
		}
	}
	require.Len(t, confirmedIDs, capacity)

	var (
		mu       sync.Mutex
		promoted = map[id.RegistrationID]int{}
	)
	var wg sync.WaitGroup
	for _, regID := range confirmedIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.CancelAndPromote(ctx, regID, nil)
			if !assert.NoError(t, err) {
				return
			}
			if assert.NotNil(t, res.Promoted) {
				mu.Lock()
				promoted[res.Promoted.RegistrationID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, promoted, capacity, "each cancellation promotes a different registrant")
	for regID, n := range promoted {
		assert.Equal(t, 1, n, "registration %s promoted more than once", regID)
	}
	confirmed, err := regs.CountConfirmed(ctx, siteID)
	require.NoError(t, err)
	assert.Equal(t, capacity, confirmed)

	pending, err := notices.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, capacity, pending)

	// The promoted registrants are the oldest waitlisted ones.
	for _, regID := range waitlistedIDs[:capacity] {
		assert.Contains(t, promoted, regID)
	}
	waitlisted := models.StatusWaitlisted
	rest, err := regs.ListBySite(ctx, siteID, &waitlisted)
	require.NoError(t, err)
	require.Len(t, rest, waiting-capacity)
	for i, r := range rest {
		assert.Equal(t, waitlistedIDs[capacity+i], r.ID)
	}
}
