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
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/photongrain/internal/grain"
	"github.com/mlnoga/photongrain/internal/photon"
	"github.com/mlnoga/photongrain/internal/sim"
	"github.com/mlnoga/photongrain/internal/transfer"
)

// Builds the API router
func NewRouter() *gin.Engine {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/table", postTable)
			v1.POST("/simulate", postSimulate)
		}
	}
	return r
}

// Starts the API server
func Serve() error {
	return NewRouter().Run() // listen and serve on 0.0.0.0:8080
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

type postTableArgs struct {
	photon.Op
}

// Synthesizes a film grain table and streams it in the filmgrn1 text format
func postTable(c *gin.Context) {
	var args postTableArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Width <= 0 || args.Height <= 0 || args.ISO <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width, height and iso must be positive"})
		return
	}

	params, err := args.GrainParams()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := params.Validate(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	table := grain.Table{}
	table.Append(0, math.MaxInt64, params)

	logWriter := c.Writer
	logWriter.Header().Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)
	if err := table.Write(logWriter); err != nil {
		return
	}
	logWriter.(http.Flusher).Flush()
}

type postSimulateArgs struct {
	sim.Op
}

// Runs the Monte Carlo verification and streams its report as plain text
func postSimulate(c *gin.Context) {
	var args postSimulateArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Width <= 0 || args.Height <= 0 || args.ISO <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width, height and iso must be positive"})
		return
	}
	if _, err := transfer.ForName(args.TransferFunction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logWriter := c.Writer
	logWriter.Header().Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)
	if _, err := args.Run(logWriter); err != nil {
		return
	}
	logWriter.(http.Flusher).Flush()
}
