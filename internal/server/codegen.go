package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/crudforge/internal/codegen"
)

func (s *Server) GenerateSampleCode(c *gin.Context) {
	result, err := s.codegen.Generate(codegen.Request{
		OrgID:   c.Query("org_id"),
		OrgName: c.Query("org_name"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	download, _ := strconv.ParseBool(c.DefaultQuery("download", "false"))
	s.obsMetrics.RecordCodeGenerated(c.Request.Context(), download)

	if download {
		c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(result.Code))
		return
	}

	c.JSON(http.StatusOK, result)
}
