package handle

import (
	"bytes"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/tweetfreq/pkg/internal/service"
	"github.com/yeisme/tweetfreq/pkg/internal/types"
	"github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/rule"
	"github.com/yeisme/tweetfreq/pkg/view"
)

const msgInvalidName = "Please enter a valid Twitter username"

// IndexPage 首页，列出最近完成的分析.
func IndexPage(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	renderIndex(c, svc, http.StatusOK, "")
}

// LookupUser 首页表单提交，规范化用户名后跳转到报告页.
func LookupUser(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	var form types.LookupForm
	if err := c.ShouldBind(&form); err != nil {
		renderIndex(c, svc, http.StatusBadRequest, msgInvalidName)
		return
	}

	if err := rule.ValidateStruct(form); err != nil {
		renderIndex(c, svc, http.StatusBadRequest, msgInvalidName)
		return
	}

	name, err := service.NormalizeName(form.Name)
	if err != nil {
		renderIndex(c, svc, http.StatusBadRequest, msgInvalidName)
		return
	}

	c.Redirect(http.StatusMovedPermanently, userPath(name))
}

// AboutPage 说明页.
func AboutPage(c *gin.Context) {
	html(c, http.StatusOK, func(buf *bytes.Buffer) error {
		return view.AboutPage(buf)
	})
}

func renderIndex(c *gin.Context, svc *service.Services, code int, errMsg string) {
	var recent []view.IndexEntry

	if svc.Archive != nil {
		rows, err := svc.Archive.Recent(c.Request.Context(), "", 0)
		if err != nil {
			log.Logger().Warn().Err(err).Msg("Failed to list recent reports")
		}

		for _, r := range rows {
			recent = append(recent, view.IndexEntry{
				User:      r.User,
				Total:     humanize.Comma(int64(r.Total)),
				AvgPerDay: humanize.FormatFloat("#,###.##", r.AvgPerDay),
				CreatedAt: r.CreatedAt,
			})
		}
	}

	html(c, code, func(buf *bytes.Buffer) error {
		return view.IndexPage(buf, recent, errMsg)
	})
}
