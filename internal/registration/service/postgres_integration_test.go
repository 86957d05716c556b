//go:build integration

package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	notifymodels "misiones/internal/notification/models"
	"misiones/internal/notification/store/outbox"
	"misiones/internal/platform/sitetx"
	"misiones/internal/registration/models"
	"misiones/internal/registration/service"
	"misiones/internal/registration/store/ledger"
	sitemodels "misiones/internal/site/models"
	sitestore "misiones/internal/site/store/site"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/audit/publisher"
	auditpostgres "misiones/pkg/platform/audit/store/postgres"
	"misiones/pkg/testutil/containers"
)

type PostgresServiceSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	ledger   *ledger.PostgresStore
	sites    *sitestore.PostgresStore
	outbox   *outbox.PostgresStore
	audit    *auditpostgres.Store
	svc      *service.Service
}

func TestPostgresServiceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresServiceSuite))
}

func (s *PostgresServiceSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	db := s.postgres.DB
	s.ledger = ledger.NewPostgres(db)
	s.sites = sitestore.NewPostgres(db)
	s.outbox = outbox.NewPostgres(db)
	s.audit = auditpostgres.New(db)
	s.svc = service.New(s.ledger, s.sites, sitetx.NewPostgres(db, 10*time.Second, 5*time.Second),
		service.WithNoticeEnqueuer(s.outbox),
		service.WithAuditPublisher(publisher.NewPublisher(s.audit)),
	)
}

func (s *PostgresServiceSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(),
		"notification_outbox", "registration_events", "registrations", "sites"))
}

func (s *PostgresServiceSuite) createSite(capacity int) id.SiteID {
	site, err := sitemodels.NewSite(id.NewSiteID(), fmt.Sprintf("Sitio %d", time.Now().UnixNano()), capacity, true, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.sites.CreateIfNameAvailable(context.Background(), site))
	return site.ID
}

func (s *PostgresServiceSuite) registerConcurrently(siteID id.SiteID, n int) []*models.RegisterResult {
	results := make([]*models.RegisterResult, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := range n {
		g.Go(func() error {
			res, err := s.svc.Register(ctx, siteID, &models.RegisterRequest{
				FullName:       fmt.Sprintf("Joven %d", i),
				Email:          fmt.Sprintf("joven%d@example.com", i),
				DocumentNumber: fmt.Sprintf("5000%04d", i),
			})
			results[i] = res
			return err
		})
	}
	s.Require().NoError(g.Wait())
	return results
}

func (s *PostgresServiceSuite) TestConcurrentAdmissionsRespectCapacity() {
	const capacity, total = 5, 30
	siteID := s.createSite(capacity)
	results := s.registerConcurrently(siteID, total)

	confirmed, positions := 0, map[int]bool{}
	for _, r := range results {
		switch r.Status {
		case models.StatusConfirmed:
			confirmed++
		case models.StatusWaitlisted:
			s.Require().NotNil(r.WaitlistPosition)
			positions[*r.WaitlistPosition] = true
		}
	}
	s.Equal(capacity, confirmed)

	count, err := s.ledger.CountConfirmed(context.Background(), siteID)
	s.Require().NoError(err)
	s.Equal(capacity, count)
	for p := 1; p <= total-capacity; p++ {
		s.True(positions[p], "waitlist position %d missing", p)
	}
}

func (s *PostgresServiceSuite) TestConcurrentCancellationsPromoteInFIFOOrder() {
	const capacity = 4
	siteID := s.createSite(capacity)
	s.registerConcurrently(siteID, 10)
	ctx := context.Background()

	confirmedStatus := models.StatusConfirmed
	confirmed, err := s.ledger.ListBySite(ctx, siteID, &confirmedStatus)
	s.Require().NoError(err)
	s.Require().Len(confirmed, capacity)
	waitlistedStatus := models.StatusWaitlisted
	waitlist, err := s.ledger.ListBySite(ctx, siteID, &waitlistedStatus)
	s.Require().NoError(err)

	g, gctx := errgroup.WithContext(ctx)
	promoted := make(chan id.RegistrationID, capacity)
	for _, r := range confirmed {
		g.Go(func() error {
			res, err := s.svc.CancelAndPromote(gctx, r.ID, &models.CancelRequest{Reason: "baja"})
			if err != nil {
				return err
			}
			if res.Promoted != nil {
				promoted <- res.Promoted.RegistrationID
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	close(promoted)

	got := map[id.RegistrationID]bool{}
	for regID := range promoted {
		got[regID] = true
	}
	s.Len(got, capacity)
	for _, head := range waitlist[:capacity] {
		s.True(got[head.ID], "waitlist head %s was not promoted", head.ID)
	}

	count, err := s.ledger.CountConfirmed(ctx, siteID)
	s.Require().NoError(err)
	s.Equal(capacity, count)

	for _, head := range waitlist[:capacity] {
		notice, err := s.outbox.FindByDedupeKey(ctx, notifymodels.PromotedDedupeKey(head.ID))
		s.Require().NoError(err)
		s.Equal(notifymodels.KindPromoted, notice.Kind)
		events, err := s.audit.ListByRegistration(ctx, head.ID)
		s.Require().NoError(err)
		s.NotEmpty(events)
	}
}

func (s *PostgresServiceSuite) TestDeleteFreesSlotAndPromotes() {
	siteID := s.createSite(1)
	ctx := context.Background()
	results := s.registerConcurrently(siteID, 2)

	var confirmedID, waitlistedID id.RegistrationID
	for _, r := range results {
		if r.Status == models.StatusConfirmed {
			confirmedID = r.ID
		} else {
			waitlistedID = r.ID
		}
	}

	res, err := s.svc.DeleteRegistration(ctx, confirmedID)
	s.Require().NoError(err)
	s.Require().NotNil(res.Promoted)
	s.Equal(waitlistedID, res.Promoted.RegistrationID)

	_, err = s.svc.GetRegistration(ctx, confirmedID)
	s.ErrorIs(err, models.ErrRegistrationNotFound)
}
