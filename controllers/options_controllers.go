package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/forms-api/services"
	"github.com/yeremiapane/forms-api/utils"
)

// OptionsController serves the static dropdown lists used by the public form.
type OptionsController struct {
	Options services.FormOptions
}

func NewOptionsController(opts services.FormOptions) *OptionsController {
	return &OptionsController{Options: opts}
}

// List returns a handler for the named dropdown.
func (oc *OptionsController) List(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, ok := oc.Options.List(name)
		if !ok {
			utils.RespondError(c, http.StatusNotFound, utils.ErrCodeNotFound)
			return
		}
		utils.RespondJSON(c, http.StatusOK, list)
	}
}
