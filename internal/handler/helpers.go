package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/robogate/robogate/internal/pkg/apperrors"
	"github.com/robogate/robogate/internal/repository"
)

// respondErr 统一错误出口：AppError 按分类映射状态码，其余走 500
func respondErr(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		err = apperrors.NewNotFound("resource not found")
	}
	appErr := apperrors.Wrap(err)
	c.JSON(appErr.HTTPStatus, appErr)
}
