package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accesscodeservice "sayit/internal/accesscode/service"
	accesscodestore "sayit/internal/accesscode/store"
	actorservice "sayit/internal/actor/service"
	actorstore "sayit/internal/actor/store"
	"sayit/internal/agency"
	agencystore "sayit/internal/agency/store"
	"sayit/internal/attachment"
	"sayit/internal/audit"
	complaintservice "sayit/internal/complaint/service"
	complaintstore "sayit/internal/complaint/store"
	notifservice "sayit/internal/notification/service"
	notifstore "sayit/internal/notification/store"
	"sayit/internal/notifier"
	"sayit/internal/platform/config"
	"sayit/internal/platform/metrics"
	"sayit/internal/token"
	"sayit/internal/token/revocation"
	httptransport "sayit/internal/transport/http"
	id "sayit/pkg/domain"
)

// APISuite drives the full stack over HTTP against in-memory backends, the
// way a filing client would.
type APISuite struct {
	suite.Suite

	server *httptest.Server
	actors *actorservice.Service

	agencyID   id.AgencyID
	categoryID id.CategoryID
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	ctx := context.Background()

	agencies := agencystore.NewInMemoryStore()
	ag := agency.Agency{ID: id.NewAgencyID(), Name: "Public Works", Email: "works@city.example", Active: true}
	s.Require().NoError(agencies.SaveAgency(ctx, &ag))
	cat := agency.Category{ID: id.NewCategoryID(), Name: "Roads", AgencyID: ag.ID}
	s.Require().NoError(agencies.SaveCategory(ctx, &cat))
	s.agencyID, s.categoryID = ag.ID, cat.ID

	accounts := actorstore.NewInMemoryAccountStore()
	anonymous := actorstore.NewInMemoryAnonymousStore()
	notifications := notifstore.NewInMemoryStore()
	complaints := complaintstore.NewInMemoryStore(notifications)

	mailer := notifier.NoopNotifier{}
	auditPub := audit.NewPublisher(logger)

	s.actors = actorservice.NewService(accounts, anonymous, logger, m)
	codes := accesscodeservice.NewService(anonymous, accesscodestore.NewInMemoryRecoveryStore(), s.actors, mailer, logger)
	tokens := token.NewService("api-test-key", config.TokenConfig{
		CitizenTTL:   7 * 24 * time.Hour,
		AgentTTL:     12 * time.Hour,
		AnonymousTTL: 30 * 24 * time.Hour,
	}, revocation.NewMemoryTRL(), s.actors)
	dispatcher := notifservice.NewDispatcher(notifications, logger, m)
	engine := complaintservice.NewEngine(complaints, agencies, s.actors, mailer, auditPub, logger, m)

	handler := httptransport.NewHandler(
		s.actors, codes, tokens, engine, dispatcher,
		agencies, attachment.NewFakeStore(), auditPub, logger,
	)
	s.server = httptest.NewServer(httptransport.NewRouter(handler))
}

func (s *APISuite) TearDownTest() {
	s.server.Close()
}

func (s *APISuite) do(method, path, bearer string, body any) (*http.Response, map[string]any) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	var decoded map[string]any
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func (s *APISuite) registerAndLoginCitizen(email string) string {
	resp, _ := s.do(http.MethodPost, "/auth/citizen/register", "", map[string]any{
		"email": email, "password": "a sturdy passphrase",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp, body := s.do(http.MethodPost, "/auth/citizen/login", "", map[string]any{
		"email": email, "password": "a sturdy passphrase",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	tokenStr, _ := body["token"].(string)
	s.Require().NotEmpty(tokenStr)
	return tokenStr
}

func (s *APISuite) loginStaff() string {
	_, err := s.actors.CreateActor(context.Background(), actorservice.NewAccount{
		Kind: id.ActorStaff, Email: "staff@city.example", Password: "a sturdy passphrase", Role: id.RoleSupervisor,
	})
	s.Require().NoError(err)

	resp, body := s.do(http.MethodPost, "/auth/staff/login", "", map[string]any{
		"email": "staff@city.example", "password": "a sturdy passphrase",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	return body["token"].(string)
}

func (s *APISuite) fileComplaint(bearer string) (complaintID, trackingID string) {
	resp, body := s.do(http.MethodPost, "/complaints", bearer, map[string]any{
		"title":       "Pothole on Main St",
		"description": "Deep pothole near number 42, growing every week.",
		"category_id": s.categoryID.String(),
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	return body["id"].(string), body["tracking_id"].(string)
}

// TestComplaintJourney walks the primary product flow end to end: a citizen
// files, staff resolves, the citizen pushes back, and the complaint reopens.
func (s *APISuite) TestComplaintJourney() {
	citizen := s.registerAndLoginCitizen("a@x.com")
	staff := s.loginStaff()

	complaintID, trackingID := s.fileComplaint(citizen)
	s.Regexp(`^SAY-\d{4}-\d{5}$`, trackingID)

	s.Run("tracking lookup needs no token", func() {
		resp, body := s.do(http.MethodGet, "/complaints/track/"+trackingID, "", nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		c := body["complaint"].(map[string]any)
		s.Equal("pending", c["status"])
		s.Equal(s.agencyID.String(), c["agency_id"])
	})

	s.Run("staff resolves", func() {
		resp, body := s.do(http.MethodPost, "/complaints/"+complaintID+"/status", staff, map[string]any{
			"status": "resolved", "note": "Crew filled the pothole.",
		})
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		s.Equal("resolved", body["status"])
		s.NotEmpty(body["resolved_at"])
	})

	s.Run("submitter pushback reopens", func() {
		resp, _ := s.do(http.MethodPost, "/complaints/"+complaintID+"/responses", citizen, map[string]any{
			"message": "It's still broken.",
		})
		s.Require().Equal(http.StatusCreated, resp.StatusCode)

		resp, body := s.do(http.MethodGet, "/complaints/track/"+trackingID, "", nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		c := body["complaint"].(map[string]any)
		s.Equal("in_progress", c["status"])
		// The resolution stamp survives the reopen.
		s.NotEmpty(c["resolved_at"])
	})

	s.Run("resolution landed in the citizen inbox", func() {
		resp, body := s.do(http.MethodGet, "/notifications", citizen, nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		entries := body["notifications"].([]any)
		s.Require().NotEmpty(entries)

		found := false
		for _, e := range entries {
			if e.(map[string]any)["type"] == "complaint_update" {
				found = true
			}
		}
		s.True(found)
	})
}

func (s *APISuite) TestAnonymousJourney() {
	resp, body := s.do(http.MethodPost, "/auth/anonymous/identity", "", nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	code := body["code"].(string)
	s.Regexp(`^SAY\d{9}$`, code)

	resp, body = s.do(http.MethodPost, "/auth/anonymous/login", "", map[string]any{"code": code})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	bearer := body["token"].(string)

	resp, body = s.do(http.MethodPost, "/complaints", bearer, map[string]any{
		"title":       "Retaliation concern",
		"description": "Reporting without exposure.",
		"category_id": s.categoryID.String(),
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("anonymous", body["submission_type"])

	s.Run("revoked code stops logging in", func() {
		resp, _ := s.do(http.MethodPost, "/auth/anonymous/revoke", "", map[string]any{"code": code})
		s.Require().Equal(http.StatusNoContent, resp.StatusCode)

		resp, _ = s.do(http.MethodPost, "/auth/anonymous/login", "", map[string]any{"code": code})
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})
}

func (s *APISuite) TestAuthorizationBoundaries() {
	citizen := s.registerAndLoginCitizen("a@x.com")
	complaintID, _ := s.fileComplaint(citizen)

	s.Run("filing requires a token", func() {
		resp, _ := s.do(http.MethodPost, "/complaints", "", map[string]any{
			"title": "No token", "description": "should fail", "category_id": s.categoryID.String(),
		})
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("garbage token is rejected even on optional-auth routes", func() {
		resp, _ := s.do(http.MethodGet, "/complaints/track/SAY-2024-00001", "not-a-token", nil)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("citizens cannot drive the lifecycle", func() {
		resp, _ := s.do(http.MethodPost, "/complaints/"+complaintID+"/status", citizen, map[string]any{
			"status": "resolved",
		})
		s.Equal(http.StatusForbidden, resp.StatusCode)
	})

	s.Run("admin surface is closed to non-admins", func() {
		resp, _ := s.do(http.MethodPost, "/admin/actors", citizen, map[string]any{
			"kind": "staff", "email": "x@city.example", "password": "a sturdy passphrase", "role": "supervisor",
		})
		s.Equal(http.StatusForbidden, resp.StatusCode)
	})

	s.Run("logout revokes the session token", func() {
		resp, _ := s.do(http.MethodPost, "/auth/logout", citizen, nil)
		s.Require().Equal(http.StatusNoContent, resp.StatusCode)

		resp, _ = s.do(http.MethodGet, "/notifications", citizen, nil)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})
}

func (s *APISuite) TestPasswordRecoveryIsUniform() {
	s.registerAndLoginCitizen("a@x.com")

	for _, email := range []string{"a@x.com", "nobody@x.com"} {
		resp, body := s.do(http.MethodPost, "/auth/recovery/request", "", map[string]any{
			"kind": "citizen", "email": email,
		})
		s.Equal(http.StatusAccepted, resp.StatusCode)
		s.Equal("if the account exists, a recovery code has been sent", body["message"])
	}
}
