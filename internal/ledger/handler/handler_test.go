package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"partnerd/internal/eventlog"
	"partnerd/internal/ledger"
	"partnerd/internal/ledger/handler/mocks"
	id "partnerd/pkg/domain"
	dErrors "partnerd/pkg/domain-errors"
	"partnerd/pkg/testutil"
)

// stubValidator authenticates every request as a fixed caller.
type stubValidator struct {
	caller id.Address
}

func (v stubValidator) Validate(string) (id.Address, error) {
	return v.caller, nil
}

type HandlerSuite struct {
	suite.Suite
	router      http.Handler
	ctrl        *gomock.Controller
	mockService *mocks.MockService

	caller       id.Address
	counterparty id.Address
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.caller = s.mustAddr("0x1111111111111111111111111111111111111111")
	s.counterparty = s.mustAddr("0x2222222222222222222222222222222222222222")

	h := New(s.mockService, logger)
	r := chi.NewRouter()
	h.Register(r, stubValidator{caller: s.caller})
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) mustAddr(raw string) id.Address {
	addr, err := id.ParseAddress(raw)
	s.Require().NoError(err)
	return addr
}

func (s *HandlerSuite) authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

func (s *HandlerSuite) TestCreate() {
	s.Run("valid request returns the allocated id", func() {
		s.mockService.EXPECT().
			Create(gomock.Any(), s.caller, s.counterparty, id.Amount(500)).
			Return(id.PartnershipID(7), nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/partnerships", map[string]string{
			"counterparty": s.counterparty.String(),
			"amount":       "500",
		})
		rr := testutil.DoRequest(s.router, s.authed(req))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[map[string]string](s.T(), rr)
		s.Equal("7", (*resp)["id"])
	})

	s.Run("missing bearer token is rejected before the service", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/partnerships", map[string]string{
			"counterparty": s.counterparty.String(),
			"amount":       "500",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("malformed body is a bad request", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/partnerships")
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("invalid counterparty address is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/partnerships", map[string]string{
			"counterparty": "not-an-address",
			"amount":       "500",
		})
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("invalid amount is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/partnerships", map[string]string{
			"counterparty": s.counterparty.String(),
			"amount":       "-5",
		})
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_amount")
	})

	s.Run("unknown counterparty maps to 422", func() {
		s.mockService.EXPECT().
			Create(gomock.Any(), s.caller, s.counterparty, id.Amount(500)).
			Return(id.PartnershipID(0), dErrors.New(dErrors.CodeUnknownCounterparty, "counterparty is not a registered participant"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/partnerships", map[string]string{
			"counterparty": s.counterparty.String(),
			"amount":       "500",
		})
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "unknown_counterparty")
	})
}

func (s *HandlerSuite) TestConfirm() {
	s.Run("success returns no content", func() {
		s.mockService.EXPECT().
			Confirm(gomock.Any(), s.caller, id.PartnershipID(3)).
			Return(nil)

		req := testutil.NewRequest(s.T(), http.MethodPost, "/partnerships/3/confirm")
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("non-numeric id is rejected without touching the service", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/partnerships/abc/confirm")
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("completed partnership maps to conflict", func() {
		s.mockService.EXPECT().
			Confirm(gomock.Any(), s.caller, id.PartnershipID(3)).
			Return(dErrors.New(dErrors.CodeAlreadyCompleted, "partnership is already completed"))

		req := testutil.NewRequest(s.T(), http.MethodPost, "/partnerships/3/confirm")
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "already_completed")
	})
}

func (s *HandlerSuite) TestCancel() {
	s.Run("success returns no content", func() {
		s.mockService.EXPECT().
			Cancel(gomock.Any(), s.caller, id.PartnershipID(4)).
			Return(nil)

		req := testutil.NewRequest(s.T(), http.MethodPost, "/partnerships/4/cancel")
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("non-party maps to forbidden", func() {
		s.mockService.EXPECT().
			Cancel(gomock.Any(), s.caller, id.PartnershipID(4)).
			Return(dErrors.New(dErrors.CodeUnauthorized, "caller is not a party to this partnership"))

		req := testutil.NewRequest(s.T(), http.MethodPost, "/partnerships/4/cancel")
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "unauthorized")
	})
}

func (s *HandlerSuite) TestGet() {
	s.Run("returns the partnership record without auth", func() {
		s.mockService.EXPECT().
			Get(gomock.Any(), id.PartnershipID(0)).
			Return(ledger.Partnership{
				ID:           0,
				Initiator:    s.caller,
				Counterparty: s.counterparty,
				Amount:       100,
			}, nil)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/partnerships/0")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		s.Equal("0", (*resp)["id"])
		s.Equal("100", (*resp)["amount"])
		s.Equal(false, (*resp)["completed"])
	})

	s.Run("unknown id maps to not found", func() {
		s.mockService.EXPECT().
			Get(gomock.Any(), id.PartnershipID(999)).
			Return(ledger.Partnership{}, dErrors.New(dErrors.CodeNotFound, "partnership does not exist"))

		req := testutil.NewRequest(s.T(), http.MethodGet, "/partnerships/999")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *HandlerSuite) TestEvents() {
	pid := id.PartnershipID(5)
	s.mockService.EXPECT().
		History(gomock.Any(), pid).
		Return([]eventlog.Event{
			{TxRef: id.NewTxRef(), Partnership: &pid, Action: eventlog.ActionCreated, Actor: s.caller, Counterparty: s.counterparty, Amount: 50},
			{TxRef: id.NewTxRef(), Partnership: &pid, Action: eventlog.ActionConfirmed, Actor: s.counterparty},
		}, nil)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/partnerships/5/events")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[[]map[string]any](s.T(), rr)
	s.Require().Len(*resp, 2)
	s.Equal("created", (*resp)[0]["action"])
	s.Equal("50", (*resp)[0]["amount"])
	s.Equal("confirmed", (*resp)[1]["action"])
}

func (s *HandlerSuite) TestListForParticipant() {
	s.mockService.EXPECT().
		ListForParticipant(gomock.Any(), s.caller).
		Return([]id.PartnershipID{0, 2, 5}, nil)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/participants/"+s.caller.String()+"/partnerships")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[map[string][]string](s.T(), rr)
	s.Equal([]string{"0", "2", "5"}, (*resp)["partnerships"])
}

func (s *HandlerSuite) TestStats() {
	s.mockService.EXPECT().
		StatsFor(gomock.Any(), s.caller).
		Return(ledger.Stats{
			TotalPartnerships:     4,
			CompletedPartnerships: 2,
			SuccessRate:           50,
			TotalEarned:           700,
		}, nil)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/participants/"+s.caller.String()+"/stats")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[ledger.Stats](s.T(), rr)
	s.Equal(4, resp.TotalPartnerships)
	s.Equal(float64(50), resp.SuccessRate)
	s.Equal(id.Amount(700), resp.TotalEarned)
}
