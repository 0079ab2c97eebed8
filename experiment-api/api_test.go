/*
 * Copyright Tabular Pipeline Org. 2026
 *
 * contact@tabular-pipeline.io
 *
 * This software is part of the Tabular Pipeline project, an open-source
 * machine learning pipeline.
 *
 * This software is governed by the CeCILL license, compatible with the
 * GNU GPL, under French law and abiding by the rules of distribution of
 * free software. You can  use, modify and/ or redistribute the software
 * under the terms of the CeCILL license as circulated by CEA, CNRS and
 * INRIA at the following URL "http://www.cecill.info".
 *
 * As a counterpart to the access to the source code and  rights to copy,
 * modify and redistribute granted by the license, users are provided only
 * with a limited warranty  and the software's author,  the holder of the
 * economic rights,  and the successive licensors  have only  limited
 * liability.
 *
 * In this respect, the user's attention is drawn to the risks associated
 * with loading,  using,  modifying and/or developing or reproducing the
 * software by the user in light of its specific status of free software,
 * that may mean  that it is complicated to manipulate,  and  that  also
 * therefore means  that it is reserved for developers  and  experienced
 * professionals having in-depth computer knowledge. Users are therefore
 * encouraged to load and test the software's suitability as regards their
 * requirements in conditions enabling the security of their systems and/or
 * data to be ensured and,  more generally, to use and operate it in the
 * same conditions as regards security.
 *
 * The fact that you are presently reading this means that you have had
 * knowledge of the CeCILL license and that you accept its terms.
 */

package main

import (
	"os"
	"testing"

	uuid "github.com/satori/go.uuid"
	"gopkg.in/kataras/iris.v6"
	"gopkg.in/kataras/iris.v6/httptest"

	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

var (
	app        *iris.Framework
	randomUUID string
)

func TestMain(m *testing.M) {
	app = setTestApp()
	randomUUID = uuid.NewV4().String()
	os.Exit(m.Run())
}

// Test valid Root request returns Success
func TestRootRoute(t *testing.T) {
	e := httptest.New(app, t)
	e.GET(RootRoute).Expect().Status(200)
}

// Test valid Health request returns Success
func TestHealthRoute(t *testing.T) {
	e := httptest.New(app, t)
	e.GET(HealthRoute).Expect().Status(200).JSON().Equal(map[string]interface{}{"status": "ok"})
}

func TestRouteAuthentication(t *testing.T) {
	e := httptest.New(app, t)

	// Test route access unauthorized without authentication
	e.GET(RunListRoute).Expect().Status(401)

	// Test route access unauthorized with wrong authentication
	e.GET(RunListRoute).WithBasicAuth("invalid", "invalid").Expect().Status(401)
}

func TestGetRunList(t *testing.T) {
	e := httptest.New(app, t)

	// Test valid request returns Success
	e.GET(RunListRoute).WithBasicAuth("u", "p").Expect().Status(200)
}

func TestGetRun(t *testing.T) {
	e := httptest.New(app, t)

	// Test valid request returns Success
	e.GET(RunListRoute+"/"+randomUUID).WithBasicAuth("u", "p").Expect().Status(200)

	// Test invalid uuid returns BadRequest
	e.GET(RunListRoute+"/666devil").WithBasicAuth("u", "p").Expect().Status(400).Body().Match("(.*)Impossible to parse UUID(.*)")

	// Test uuid not in db returns NotFound
	e.GET(RunListRoute+"/"+DevilMockUUID).WithBasicAuth("u", "p").Expect().Status(404).Body().Match("(.*)sql: no rows in result set(.*)")
}

func TestPostRun(t *testing.T) {
	e := httptest.New(app, t)

	// Test valid request returns StatusCreated
	run := common.NewRun(common.TypeTrainRequest)
	e.POST(RunListRoute).WithBasicAuth("u", "p").WithJSON(run).Expect().Status(201)

	// Test run with invalid kind returns BadRequest
	invalid := common.NewRun(common.TypeTrainRequest)
	invalid.Kind = "divination"
	e.POST(RunListRoute).WithBasicAuth("u", "p").WithJSON(invalid).Expect().Status(400).Body().Match("(.*)kind field ain't valid(.*)")

	// Test run with invalid status returns BadRequest
	invalid = common.NewRun(common.TypeTrainRequest)
	invalid.Status = "procrastinating"
	e.POST(RunListRoute).WithBasicAuth("u", "p").WithJSON(invalid).Expect().Status(400).Body().Match("(.*)status field ain't valid(.*)")

	// Test run with an already used uuid returns Conflict
	duplicate := common.NewRun(common.TypeTrainRequest)
	duplicate.ID = uuid.FromStringOrNil(RunMockUUIDStr)
	e.POST(RunListRoute).WithBasicAuth("u", "p").WithJSON(duplicate).Expect().Status(409).Body().Match("(.*)already exist(.*)")

	// Test garbage body returns BadRequest
	e.POST(RunListRoute).WithBasicAuth("u", "p").WithBytes([]byte("not json at all")).Expect().Status(400).Body().Match("(.*)Error decoding run(.*)")
}

func TestPostRunStatus(t *testing.T) {
	e := httptest.New(app, t)

	// Test valid request returns Success
	e.POST(RunListRoute+"/"+randomUUID+"/status").WithBasicAuth("u", "p").WithJSON(map[string]string{"status": common.RunStatusPending}).Expect().Status(200)

	// Test invalid status returns BadRequest
	e.POST(RunListRoute+"/"+randomUUID+"/status").WithBasicAuth("u", "p").WithJSON(map[string]string{"status": "procrastinating"}).Expect().Status(400).Body().Match("(.*)ain't valid(.*)")

	// Test unset status field returns BadRequest
	e.POST(RunListRoute+"/"+randomUUID+"/status").WithBasicAuth("u", "p").WithJSON(map[string]string{"speed": "fast"}).Expect().Status(400).Body().Match("(.*)status field is unset(.*)")

	// Test invalid uuid returns BadRequest
	e.POST(RunListRoute+"/666devil/status").WithBasicAuth("u", "p").WithJSON(map[string]string{"status": common.RunStatusPending}).Expect().Status(400)

	// Test uuid not in db returns NotFound
	e.POST(RunListRoute+"/"+DevilMockUUID+"/status").WithBasicAuth("u", "p").WithJSON(map[string]string{"status": common.RunStatusPending}).Expect().Status(404)
}

func TestPostRunPerf(t *testing.T) {
	e := httptest.New(app, t)

	// Test valid request returns Success
	perf := common.Perf{Accuracy: 0.85, PerLabel: map[string]float64{"<=50K": 0.95, ">50K": 0.55}}
	e.POST(RunListRoute+"/"+randomUUID+"/perf").WithBasicAuth("u", "p").WithJSON(perf).Expect().Status(200)

	// Test invalid uuid returns BadRequest
	e.POST(RunListRoute+"/666devil/perf").WithBasicAuth("u", "p").WithJSON(perf).Expect().Status(400)

	// Test uuid not in db returns NotFound
	e.POST(RunListRoute+"/"+DevilMockUUID+"/perf").WithBasicAuth("u", "p").WithJSON(perf).Expect().Status(404)
}

func TestGetArtifactBlob(t *testing.T) {
	e := httptest.New(app, t)

	// Test valid request returns Success
	e.GET("/artifact/"+randomUUID+"/blob").WithBasicAuth("u", "p").Expect().Status(200)

	// Test invalid uuid returns BadRequest
	e.GET("/artifact/666devil/blob").WithBasicAuth("u", "p").Expect().Status(400).Body().Match("(.*)Impossible to parse UUID(.*)")

	// Test failed download returns InternalServerError
	e.GET("/artifact/"+common.ViciousDevilUUID+"/blob").WithBasicAuth("u", "p").Expect().Status(500)
}

func TestPostArtifactBlob(t *testing.T) {
	e := httptest.New(app, t)

	// Test valid request returns StatusCreated
	e.POST("/artifact/"+randomUUID+"/blob").WithBasicAuth("u", "p").WithHeader("Content-Length", "15").WithBytes([]byte("fakefilecontent")).Expect().Status(201)

	// Test invalid uuid returns BadRequest
	e.POST("/artifact/666devil/blob").WithBasicAuth("u", "p").WithHeader("Content-Length", "15").WithBytes([]byte("fakefilecontent")).Expect().Status(400)

	// Test failed file upload returns InternalServerError
	e.POST("/artifact/"+randomUUID+"/blob").WithBasicAuth("u", "p").WithHeader("Content-Length", common.NaughtySize).WithBytes([]byte("fakefilecontent")).Expect().Status(500).Body().Match("(.*)naughty size(.*)")
}
