/*
   Copyright @ 2021 bocloud <fushaosong@beyondcent.com>.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package run

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
	"github.com/carina-io/mdlvm/utils/log"
)

type volumeSource interface {
	Statuses() []types.VolumeStatus
}

type volumeGroupLister interface {
	VolumeGroups() ([]types.VgGroup, error)
}

type eHttpServer struct {
	e       *echo.Echo
	addr    string
	volumes volumeSource
	vgs     volumeGroupLister
}

func newHttpServer(addr string, volumes volumeSource, vgs volumeGroupLister, gatherer prometheus.Gatherer) *eHttpServer {
	h := &eHttpServer{
		e:       echo.New(),
		addr:    addr,
		volumes: volumes,
		vgs:     vgs,
	}
	h.e.HideBanner = true
	h.e.HidePort = true
	h.e.GET("/healthz", h.healthz)
	h.e.GET("/volumes", h.volumeList)
	h.e.GET("/volumegroups", h.vgList)
	h.e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})))
	return h
}

// start serves until ctx is done.
func (h *eHttpServer) start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("http server listening on %s", h.addr)
		errCh <- h.e.Start(h.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *eHttpServer) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (h *eHttpServer) volumeList(c echo.Context) error {
	return c.JSON(http.StatusOK, h.volumes.Statuses())
}

func (h *eHttpServer) vgList(c echo.Context) error {
	vgList, err := h.vgs.VolumeGroups()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, vgList)
}
