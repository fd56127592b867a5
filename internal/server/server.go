package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/bywater/internal/calendar"
	"github.com/dukerupert/bywater/internal/feed"
	"github.com/dukerupert/bywater/internal/handler"
	"github.com/dukerupert/bywater/internal/middleware"
	"github.com/dukerupert/bywater/internal/push"
	"github.com/dukerupert/bywater/internal/store"
	ws "github.com/dukerupert/bywater/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	memberH       *handler.MemberHandler
	eventH        *handler.CalendarEventHandler
	availabilityH *handler.AvailabilityHandler
	choreH        *handler.ChoreHandler
	shoppingH     *handler.ShoppingHandler
	stockH        *handler.StockHandler
	contactH      *handler.ContactHandler
	equipmentH    *handler.EquipmentHandler
	vehicleH      *handler.VehicleHandler
	subscriptionH *handler.SubscriptionHandler
	pushH         *handler.PushHandler
	feedSyncer    *feed.Syncer
	pushScheduler *push.Scheduler
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

func New(db *sql.DB, pushCfg push.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	memberStore := store.NewMemberStore(db)
	eventStore := store.NewCalendarEventStore(db)
	feedStore := store.NewFeedStore(db)
	choreStore := store.NewChoreStore(db)
	shoppingStore := store.NewShoppingStore(db)
	stockStore := store.NewStockStore(db)
	contactStore := store.NewContactStore(db)
	equipmentStore := store.NewEquipmentStore(db)
	vehicleStore := store.NewVehicleStore(db)
	pushStore := store.NewPushStore(db)

	availability := calendar.NewAvailability(eventStore, feedStore, memberStore, logger.With("component", "availability"))
	mutator := calendar.NewMutator(eventStore, logger.With("component", "calendar"))
	syncer := feed.NewSyncer(feedStore, logger.With("component", "feed"))

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(pushCfg)
		pushSched = push.NewScheduler(pushSvc, pushStore, eventStore, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushStore, memberStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		memberH:       handler.NewMemberHandler(memberStore, hub, logger.With("component", "member")),
		eventH:        handler.NewCalendarEventHandler(eventStore, memberStore, mutator, hub, logger.With("component", "calendar")),
		availabilityH: handler.NewAvailabilityHandler(availability, memberStore),
		choreH:        handler.NewChoreHandler(choreStore, memberStore, hub, logger.With("component", "chore")),
		shoppingH:     handler.NewShoppingHandler(shoppingStore, hub, logger.With("component", "shopping")),
		stockH:        handler.NewStockHandler(stockStore, hub, logger.With("component", "stock")),
		contactH:      handler.NewContactHandler(contactStore, hub, logger.With("component", "contact")),
		equipmentH:    handler.NewEquipmentHandler(equipmentStore, hub, logger.With("component", "equipment")),
		vehicleH:      handler.NewVehicleHandler(vehicleStore, hub, logger.With("component", "vehicle")),
		subscriptionH: handler.NewSubscriptionHandler(feedStore, memberStore, syncer, hub, logger.With("component", "feed_handler")),
		pushH:         pushH,
		feedSyncer:    syncer,
		pushScheduler: pushSched,
		rateLimiter:   middleware.NewRateLimiter(),
		logger:        logger,
	}
}

// FeedSyncer returns the feed syncer so main can run its loop.
func (s *Server) FeedSyncer() *feed.Syncer {
	return s.feedSyncer
}

// PushScheduler returns the reminder scheduler, nil when VAPID keys are not
// configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Member routes
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("GET /api/members/{id}", s.memberH.Get)
	mux.HandleFunc("PUT /api/members/{id}", s.memberH.Update)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)
	mux.HandleFunc("PUT /api/members/sort", s.memberH.UpdateSortOrder)

	// PIN routes. Verification is rate limited by client IP.
	mux.HandleFunc("POST /api/members/{id}/pin", s.memberH.SetPIN)
	mux.HandleFunc("DELETE /api/members/{id}/pin", s.memberH.ClearPIN)
	mux.HandleFunc("POST /api/members/{id}/pin/verify", s.rateLimitedHandler(s.memberH.VerifyPIN))

	// Calendar event routes
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)

	// Availability routes
	mux.HandleFunc("GET /api/availability/free-busy", s.availabilityH.FreeBusy)
	mux.HandleFunc("GET /api/availability/slots", s.availabilityH.Slots)

	// Feed subscription routes
	mux.HandleFunc("GET /api/feeds", s.subscriptionH.List)
	mux.HandleFunc("POST /api/feeds", s.subscriptionH.Create)
	mux.HandleFunc("PUT /api/feeds/{id}", s.subscriptionH.Update)
	mux.HandleFunc("DELETE /api/feeds/{id}", s.subscriptionH.Delete)
	mux.HandleFunc("POST /api/feeds/{id}/sync", s.subscriptionH.Sync)

	// Chore routes
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)
	mux.HandleFunc("POST /api/chores/{id}/complete", s.choreH.Complete)
	mux.HandleFunc("DELETE /api/chore-completions/{id}", s.choreH.DeleteCompletion)
	mux.HandleFunc("GET /api/chore-areas", s.choreH.ListAreas)
	mux.HandleFunc("POST /api/chore-areas", s.choreH.CreateArea)
	mux.HandleFunc("PUT /api/chore-areas/{id}", s.choreH.UpdateArea)
	mux.HandleFunc("DELETE /api/chore-areas/{id}", s.choreH.DeleteArea)

	// Shopping routes
	mux.HandleFunc("GET /api/shopping-lists", s.shoppingH.ListLists)
	mux.HandleFunc("GET /api/shopping-lists/{id}/items", s.shoppingH.ListItems)
	mux.HandleFunc("POST /api/shopping-lists/{id}/items", s.shoppingH.CreateItem)
	mux.HandleFunc("POST /api/shopping-lists/{id}/clear-checked", s.shoppingH.ClearChecked)
	mux.HandleFunc("PUT /api/shopping-items/{id}", s.shoppingH.UpdateItem)
	mux.HandleFunc("POST /api/shopping-items/{id}/check", s.shoppingH.SetChecked)
	mux.HandleFunc("DELETE /api/shopping-items/{id}", s.shoppingH.DeleteItem)

	// Stock routes
	mux.HandleFunc("GET /api/stock", s.stockH.List)
	mux.HandleFunc("POST /api/stock", s.stockH.Create)
	mux.HandleFunc("PUT /api/stock/{id}", s.stockH.Update)
	mux.HandleFunc("POST /api/stock/{id}/adjust", s.stockH.Adjust)
	mux.HandleFunc("DELETE /api/stock/{id}", s.stockH.Delete)

	// Contact routes
	mux.HandleFunc("GET /api/contacts", s.contactH.List)
	mux.HandleFunc("POST /api/contacts", s.contactH.Create)
	mux.HandleFunc("GET /api/contacts/{id}", s.contactH.Get)
	mux.HandleFunc("PUT /api/contacts/{id}", s.contactH.Update)
	mux.HandleFunc("DELETE /api/contacts/{id}", s.contactH.Delete)

	// Equipment routes
	mux.HandleFunc("GET /api/equipment", s.equipmentH.List)
	mux.HandleFunc("POST /api/equipment", s.equipmentH.Create)
	mux.HandleFunc("PUT /api/equipment/{id}", s.equipmentH.Update)
	mux.HandleFunc("DELETE /api/equipment/{id}", s.equipmentH.Delete)

	// Vehicle routes
	mux.HandleFunc("GET /api/vehicles", s.vehicleH.List)
	mux.HandleFunc("POST /api/vehicles", s.vehicleH.Create)
	mux.HandleFunc("PUT /api/vehicles/{id}", s.vehicleH.Update)
	mux.HandleFunc("POST /api/vehicles/{id}/odometer", s.vehicleH.RecordOdometer)
	mux.HandleFunc("DELETE /api/vehicles/{id}", s.vehicleH.Delete)

	// Push routes
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/members/{id}/push-subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	}

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
