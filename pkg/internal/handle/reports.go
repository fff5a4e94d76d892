package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/tweetfreq/pkg/internal/service"
	"github.com/yeisme/tweetfreq/pkg/internal/types"
	"github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/rule"
)

var errArchiveDisabled = errors.New("archive is disabled")

// RecentReports 最近归档的统计摘要.
//
//	@Summary		最近报告
//	@Description	按创建时间倒序列出归档的统计摘要，可按用户过滤
//	@Tags			reports
//	@Produce		json
//	@Param			user	query		string	false	"Twitter 用户名"
//	@Param			limit	query		int		false	"数量上限 (1-100)"
//	@Success		200		{object}	types.RecentReportsResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		503		{object}	map[string]string
//	@Router			/api/v1/reports/recent [get]
func RecentReports(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	if svc.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errArchiveDisabled.Error()})
		return
	}

	var req types.RecentReportsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := rule.ValidateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query", "fields": rule.Errors(err)})
		return
	}

	rows, err := svc.Archive.Recent(c.Request.Context(), req.User, req.Limit)
	if err != nil {
		log.Logger().Error().Err(err).Msg("Failed to list recent reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	resp := types.RecentReportsResponse{Reports: make([]types.ReportSummary, 0, len(rows))}
	for _, r := range rows {
		resp.Reports = append(resp.Reports, types.NewReportSummary(r))
	}

	c.JSON(http.StatusOK, resp)
}

// ReportSnapshot 读取归档报告的完整统计负载.
//
//	@Summary	报告快照
//	@Tags		reports
//	@Produce	json
//	@Param		id	path		string	true	"报告 ID"
//	@Success	200	{object}	map[string]interface{}
//	@Failure	404	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/reports/{id} [get]
func ReportSnapshot(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	if svc.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errArchiveDisabled.Error()})
		return
	}

	snap, err := svc.Archive.Snapshot(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrReportNotFound) || errors.Is(err, service.ErrNoSnapshot) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if err != nil {
		log.Logger().Error().Err(err).Str("report_id", c.Param("id")).Msg("Failed to read snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	c.JSON(http.StatusOK, snap)
}
