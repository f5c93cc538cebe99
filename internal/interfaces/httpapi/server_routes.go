package httpapi

import "net/http"

type middleware func(http.Handler) http.Handler

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/board", handler.GetBoard)
	mux.HandleFunc("GET /v1/players/available", handler.ListAvailablePlayers)
	mux.HandleFunc("GET /v1/players/completed", handler.ListCompletedPlayers)
	mux.HandleFunc("GET /v1/stream/{topic}", handler.Stream)
}

func registerAdminRosterRoutes(mux *http.ServeMux, handler *Handler, admin middleware) {
	mux.Handle("PUT /v1/admin/tournament", admin(http.HandlerFunc(handler.ConfigureTournament)))
	mux.Handle("POST /v1/admin/teams", admin(http.HandlerFunc(handler.CreateTeam)))
	mux.Handle("PUT /v1/admin/teams/{teamID}", admin(http.HandlerFunc(handler.UpdateTeam)))
	mux.Handle("DELETE /v1/admin/teams/{teamID}", admin(http.HandlerFunc(handler.DeleteTeam)))
	mux.Handle("POST /v1/admin/players", admin(http.HandlerFunc(handler.CreatePlayer)))
	mux.Handle("PUT /v1/admin/players/{playerID}", admin(http.HandlerFunc(handler.UpdatePlayer)))
	mux.Handle("DELETE /v1/admin/players/{playerID}", admin(http.HandlerFunc(handler.DeletePlayer)))
	mux.Handle("POST /v1/admin/players/{playerID}/assign", admin(http.HandlerFunc(handler.AssignPlayer)))
}

func registerAdminAuctionRoutes(mux *http.ServeMux, handler *Handler, admin middleware) {
	mux.Handle("POST /v1/admin/auction/current", admin(http.HandlerFunc(handler.SetCurrentPlayer)))
	mux.Handle("POST /v1/admin/auction/current/random", admin(http.HandlerFunc(handler.SetRandomCurrentPlayer)))
	mux.Handle("POST /v1/admin/auction/start", admin(http.HandlerFunc(handler.StartAuction)))
	mux.Handle("POST /v1/admin/auction/stop", admin(http.HandlerFunc(handler.StopAuction)))
	mux.Handle("POST /v1/admin/auction/bids", admin(http.HandlerFunc(handler.PlaceBid)))
	mux.Handle("DELETE /v1/admin/auction/bids/{index}", admin(http.HandlerFunc(handler.DeleteBid)))
	mux.Handle("POST /v1/admin/auction/sold", admin(http.HandlerFunc(handler.MarkSold)))
	mux.Handle("POST /v1/admin/auction/unsold", admin(http.HandlerFunc(handler.MarkUnsold)))
}

func registerAdminConsoleRoutes(mux *http.ServeMux, handler *Handler, admin middleware) {
	mux.Handle("GET /v1/admin/console", admin(http.HandlerFunc(handler.GetConsole)))
	mux.Handle("GET /v1/admin/console/stream", admin(http.HandlerFunc(handler.ConsoleStream)))
	mux.Handle("POST /v1/admin/console/bids", admin(http.HandlerFunc(handler.ProposeConsoleBid)))
	mux.Handle("POST /v1/admin/console/sync", admin(http.HandlerFunc(handler.SyncConsole)))
}
