package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"laundry/internal/apperr"
	"laundry/internal/store"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(defaultPageLimit)

	if pageStr = strings.TrimSpace(pageStr); pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, apperr.Validation("page must be a positive integer")
		}
		page = p
	}

	if limitStr = strings.TrimSpace(limitStr); limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, apperr.Validation("limit must be a positive integer")
		}
		if l > maxPageLimit {
			l = maxPageLimit
		}
		limit = l
	}

	return page, limit, nil
}

// pageFromQuery reads page and limit. When optional is set and neither is
// present the whole listing is selected.
func pageFromQuery(c *gin.Context, optional bool) (store.Page, error) {
	pageStr, limitStr := c.Query("page"), c.Query("limit")
	if optional && pageStr == "" && limitStr == "" {
		return store.Page{}, nil
	}
	page, limit, err := parsePaginationParams(pageStr, limitStr)
	if err != nil {
		return store.Page{}, err
	}
	return store.Page{Page: page, Limit: limit}, nil
}

func paginated(data any, page store.Page, total int64) gin.H {
	body := gin.H{"data": data, "total": total}
	if page.Limit > 0 {
		body["pagination"] = gin.H{
			"page":  page.Page,
			"limit": page.Limit,
			"total": total,
		}
	}
	return body
}
