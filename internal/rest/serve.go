// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mlnoga/nightvision/internal/enhance"
	"github.com/mlnoga/nightvision/internal/logging"
	"github.com/mlnoga/nightvision/internal/ops"
	"github.com/mlnoga/nightvision/web"
)

// REST API for batch enhancement. Request logs are streamed back as plain text
type Server struct {
	Log        *logrus.Logger
	MaxThreads int
	Sandboxed  bool // restrict file access to the current directory tree
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(s.Log.Out), gin.Recovery())
	r.GET("/", getIndex)
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/transforms", getTransforms)
			v1.POST("/enhance", s.postEnhance)
			v1.POST("/stats", s.postStats)
			v1.POST("/run", s.postRun)
		}
	}
	return r
}

// Listens and serves on the given address, e.g. ":8080"
func (s *Server) Serve(addr string) error {
	s.Log.Infof("Serving REST API on %s", addr)
	return s.Router().Run(addr)
}

func getIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func getTransforms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"transforms": enhance.TransformNames,
		"operators":  ops.OperatorTypes(),
		"defaults":   enhance.DefaultParams(),
	})
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

// Starts a plain text response and returns an operator context logging into it
func (s *Server) startLog(c *gin.Context, verbose bool, args interface{}) (*ops.Context, bool) {
	logWriter := c.Writer
	logWriter.Header().Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	if err := printArgs(logWriter, "Arguments:\n", "\n", args); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return nil, false
	}
	ctx := ops.NewContext(logging.New(logWriter, verbose), s.MaxThreads)
	ctx.Sandboxed = s.Sandboxed
	return ctx, true
}

// Builds promises from the operator and materializes them, reporting errors into the log
func run(op ops.Operator, ctx *ops.Context, w gin.ResponseWriter) {
	promises, err := op.MakePromises(nil, ctx)
	if err == nil {
		_, err = ops.MaterializeAll(promises, ctx.MaxThreads, true)
	}
	if err != nil {
		fmt.Fprintf(w, "Error: %s\n", err.Error())
	}
	w.Flush()
}

type postEnhanceArgs struct {
	FilePatterns []string       `json:"filePatterns"`
	OutPattern   string         `json:"outPattern"`
	Params       enhance.Params `json:"params"`
}

func (s *Server) postEnhance(c *gin.Context) {
	args := postEnhanceArgs{Params: enhance.DefaultParams()}
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, ok := s.startLog(c, args.Params.Verbose, args)
	if !ok {
		return
	}
	seq := ops.NewOpSequence(
		ops.NewOpLoadMany(args.FilePatterns, args.Params.Levels),
		enhance.NewOpEnhance(args.Params),
		ops.NewOpSave(args.OutPattern),
	)
	run(seq, ctx, c.Writer)
}

type postStatsArgs struct {
	FilePatterns []string `json:"filePatterns"`
	Levels       int      `json:"levels"`
	FileName     string   `json:"fileName"`
}

func (s *Server) postStats(c *gin.Context) {
	args := postStatsArgs{Levels: ops.DefaultLevels}
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, ok := s.startLog(c, false, args)
	if !ok {
		return
	}
	seq := ops.NewOpSequence(
		ops.NewOpLoadMany(args.FilePatterns, args.Levels),
		ops.NewOpStats(args.FileName),
	)
	run(seq, ctx, c.Writer)
}

// Runs an arbitrary operator posted as JSON, typically a "seq"
func (s *Server) postRun(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := ops.UnmarshalOperator(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, ok := s.startLog(c, false, op)
	if !ok {
		return
	}
	run(op, ctx, c.Writer)
}
