package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"laundry/internal/account"
)

type roleRequest struct {
	Role string `json:"role"`
}

func GetUsers(accounts *account.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := pageFromQuery(c, false)
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		users, total, err := accounts.ListUsers(ctx, page)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, paginated(users, page, total))
	}
}

func UpdateUserRole(accounts *account.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}
		userID, err := objectIDParam(c, "id", "user")
		if err != nil {
			respondError(c, log, err)
			return
		}

		var req roleRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := accounts.SetRole(ctx, actorID, userID, strings.ToLower(strings.TrimSpace(req.Role)))
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"user": user})
	}
}
