package helpers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxPageSize = 100

var ErrInvalidPagination = errors.New("invalid pagination")

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParsePagination reads page and limit query parameters, defaulting to the
// first page of ten.
func ParsePagination(c *gin.Context) (page, limit int, err error) {
	page, err = StringToInt(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 0, 0, ErrInvalidPagination
	}
	limit, err = StringToInt(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > maxPageSize {
		return 0, 0, ErrInvalidPagination
	}
	return page, limit, nil
}

func TotalPages(total int64, limit int) int64 {
	return (total + int64(limit) - 1) / int64(limit)
}

func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}
