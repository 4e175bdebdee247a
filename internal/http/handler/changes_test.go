package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"accountability.app/coachflow/internal/changefeed"
	"accountability.app/coachflow/internal/http/handler"
	"accountability.app/coachflow/internal/model"
)

var _ = Describe("ChangesHandler", func() {
	var (
		router *gin.Engine
		feed   *mockFeed
	)

	BeforeEach(func() {
		router = newRouter()
		feed = &mockFeed{}
		router.GET("/changes/stream", handler.NewChangesHandler(feed).WithBlock(10*time.Millisecond).Stream)
	})

	// stream runs the handler until the request context times out and returns the body.
	stream := func(query string) string {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/changes/stream"+query, nil).WithContext(ctx)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/event-stream"))
		return w.Body.String()
	}

	It("only sends changes visible to the requested role", func() {
		feed.batches = [][]changefeed.Entry{{
			{ID: "1-0", Change: changefeed.Change{SessionID: "s1", Audience: []model.Role{model.RoleTeamLead, model.RoleAM}}},
			{ID: "2-0", Change: changefeed.Change{SessionID: "s2", Audience: []model.Role{model.RoleEmployee}}},
		}}

		body := stream("?role=AM")

		Expect(body).To(ContainSubstring("event:ping"))
		Expect(body).To(ContainSubstring("id:1-0"))
		Expect(body).To(ContainSubstring(`"session_id":"s1"`))
		Expect(body).NotTo(ContainSubstring(`"session_id":"s2"`))
	})

	It("resumes from last_id and advances past filtered entries", func() {
		feed.batches = [][]changefeed.Entry{{
			{ID: "5-0", Change: changefeed.Change{SessionID: "s5", Audience: []model.Role{model.RoleEmployee}}},
		}}

		stream("?role=Manager&last_id=4-0")

		seen := feed.seenLastIDs()
		Expect(len(seen)).To(BeNumerically(">=", 2))
		Expect(seen[0]).To(Equal("4-0"))
		Expect(seen[1]).To(Equal("5-0"))
	})

	It("starts from new changes when no last_id is given", func() {
		stream("?role=HR%20Head")
		Expect(feed.seenLastIDs()[0]).To(Equal("$"))
	})

	It("returns 400 for an unknown role", func() {
		req := httptest.NewRequest(http.MethodGet, "/changes/stream?role=CEO", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 503 without a feed", func() {
		router = newRouter()
		router.GET("/changes/stream", handler.NewChangesHandler(nil).Stream)

		req := httptest.NewRequest(http.MethodGet, "/changes/stream?role=AM", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(strings.TrimSpace(w.Body.String())).To(ContainSubstring("not configured"))
	})
})
