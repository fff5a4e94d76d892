package handle

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/tweetfreq/pkg/internal/service"
	"github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/report"
	"github.com/yeisme/tweetfreq/pkg/types"
	"github.com/yeisme/tweetfreq/pkg/view"
)

const jsonSuffix = ".json"

// 图表尺寸未配置时的回退值.
const (
	fallbackChartWidth  = 960
	fallbackChartHeight = 400
)

// UserStatus 用户状态资源，轮询客户端使用.
//
//	@Summary		用户统计状态
//	@Description	不存在状态记录时排队抓取任务，返回 queued/running/done/error 记录
//	@Tags			user
//	@Produce		json
//	@Param			name	path		string	true	"Twitter 用户名，带 .json 后缀"
//	@Success		200		{object}	types.StatusResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/u/{name}.json [get]
func UserStatus(c *gin.Context) {
	name := c.Param("name")
	if !strings.HasSuffix(name, jsonSuffix) {
		c.Redirect(http.StatusMovedPermanently, userPath(name))
		return
	}

	svc, ok := services(c)
	if !ok {
		return
	}

	rec, err := svc.Status.Lookup(c.Request.Context(), strings.TrimSuffix(name, jsonSuffix))
	if errors.Is(err, service.ErrInvalidName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err != nil {
		log.Logger().Error().Err(err).Str("user", name).Msg("Failed to lookup status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	c.JSON(http.StatusOK, rec)
}

// UserPage 用户报告页：完成时渲染报告，否则渲染带自动刷新的状态页.
func UserPage(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	name, err := service.NormalizeName(c.Param("name"))
	if err != nil {
		html(c, http.StatusNotFound, func(buf *bytes.Buffer) error {
			st := types.NewStatus(types.StatusError, service.HeaderNotFound, service.MessageNotFound, http.StatusNotFound)
			return view.StatusPage(buf, c.Param("name"), &st, 0)
		})

		return
	}

	if name != c.Param("name") {
		c.Redirect(http.StatusMovedPermanently, userPath(name))
		return
	}

	rec, err := svc.Status.Lookup(c.Request.Context(), name)
	if err != nil {
		log.Logger().Error().Err(err).Str("user", name).Msg("Failed to lookup status")
		c.String(http.StatusInternalServerError, "internal error")

		return
	}

	if rec.Status != types.StatusDone || rec.Data == nil {
		refresh := svc.Config.Poller.GetInterval()

		html(c, http.StatusOK, func(buf *bytes.Buffer) error {
			return view.StatusPage(buf, name, &rec, refresh)
		})

		return
	}

	html(c, http.StatusOK, func(buf *bytes.Buffer) error {
		page := view.NewHTML(userPath(name) + "chart.png")
		if err := report.Render(rec.Data, name, page, report.WithConfig(svc.Config.Report)); err != nil {
			return err
		}

		return page.Write(buf)
	})
}

// UserChartPNG 按天推文数量的 PNG 图表.
//
//	@Summary	推文数量图表
//	@Tags		user
//	@Produce	png
//	@Param		name	path	string	true	"Twitter 用户名"
//	@Success	200
//	@Failure	404	{object}	map[string]string
//	@Router		/u/{name}/chart.png [get]
func UserChartPNG(c *gin.Context) {
	spec, svc, ok := userChart(c)
	if !ok {
		return
	}

	cfg := svc.Config.Report
	width, height := cfg.ChartWidth, cfg.ChartHeight

	if width <= 0 {
		width = fallbackChartWidth
	}

	if height <= 0 {
		height = fallbackChartHeight
	}

	var buf bytes.Buffer

	err := view.ChartPNG(spec, &buf, width, height)
	if errors.Is(err, view.ErrEmptyChart) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if err != nil {
		log.Logger().Error().Err(err).Str("user", c.Param("name")).Msg("Failed to render chart")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// UserChartJSON 图表配置，供前端图表库使用.
//
//	@Summary	推文数量图表配置
//	@Tags		user
//	@Produce	json
//	@Param		name	path		string	true	"Twitter 用户名"
//	@Success	200		{object}	report.ChartSpec
//	@Failure	404		{object}	map[string]string
//	@Router		/u/{name}/chart.json [get]
func UserChartJSON(c *gin.Context) {
	spec, _, ok := userChart(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, spec)
}

// userChart 只读取已有记录，不会触发抓取.
func userChart(c *gin.Context) (report.ChartSpec, *service.Services, bool) {
	svc, ok := services(c)
	if !ok {
		return report.ChartSpec{}, nil, false
	}

	name, err := service.NormalizeName(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return report.ChartSpec{}, nil, false
	}

	rec, found, err := svc.Status.Get(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return report.ChartSpec{}, nil, false
	}

	if !found || rec.Status != types.StatusDone || rec.Data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no statistics for " + name})
		return report.ChartSpec{}, nil, false
	}

	r, err := report.Build(rec.Data, name, report.WithConfig(svc.Config.Report))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return report.ChartSpec{}, nil, false
	}

	return r.Chart, svc, true
}

func userPath(name string) string {
	return "/u/" + url.PathEscape(name) + "/"
}
