package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orgdomain "github.com/smallbiznis/crudforge/internal/organization/domain"
)

type generateOrgResponse struct {
	Message         string            `json:"message"`
	OrgID           string            `json:"org_id"`
	APIKey          string            `json:"api_key"`
	OrgName         string            `json:"org_name"`
	BaseURL         string            `json:"base_url"`
	SampleEndpoints map[string]string `json:"sample_endpoints"`
}

func (s *Server) GenerateOrg(c *gin.Context) {
	ctx := c.Request.Context()

	resp, err := s.orgSvc.Generate(ctx, orgdomain.GenerateOrganizationRequest{
		Name: c.Query("name"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp.Created {
		s.obsMetrics.RecordOrgGenerated(ctx)
	}

	baseURL := s.usersBaseURL(resp.Organization.ID)
	c.JSON(http.StatusOK, generateOrgResponse{
		Message: "Org Created Successfully!",
		OrgID:   resp.Organization.ID,
		APIKey:  resp.APIKey,
		OrgName: resp.Organization.Name,
		BaseURL: baseURL,
		SampleEndpoints: map[string]string{
			http.MethodPost:   baseURL,
			http.MethodGet:    baseURL + "{org_user_id}",
			http.MethodPut:    baseURL + "{org_user_id}",
			http.MethodDelete: baseURL + "{org_user_id}",
		},
	})
}

func (s *Server) GetOrg(c *gin.Context) {
	org, err := s.orgSvc.GetByID(c.Request.Context(), c.Param("org_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// usersBaseURL is relative unless PUBLIC_BASE_URL is configured.
func (s *Server) usersBaseURL(orgID string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/api/org/" + orgID + "/users/"
}
