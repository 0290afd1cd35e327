package routes

import (
	"context"
	"net/http"
	"time"

	"storefront/db"
	"storefront/rdx"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Health reports liveness plus the reachability of MongoDB and Redis.
func Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	mongoStatus := "down"
	if db.Client != nil {
		if err := db.Client.Ping(ctx, readpref.Primary()); err == nil {
			mongoStatus = "up"
		} else {
			log.Warn().Err(err).Msg("health: mongo ping failed")
		}
	}

	redisStatus := "disabled"
	if rdx.Enabled() {
		redisStatus = "up"
		if err := rdx.Conn.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
			log.Warn().Err(err).Msg("health: redis ping failed")
		}
	}

	code, status := http.StatusOK, "ok"
	if mongoStatus != "up" {
		code, status = http.StatusServiceUnavailable, "degraded"
	}
	utils.RespondWithJSON(w, code, utils.M{
		"success": code == http.StatusOK,
		"status":  status,
		"mongo":   mongoStatus,
		"redis":   redisStatus,
		"time":    time.Now().UTC(),
	})
}
