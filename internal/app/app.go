package app

import (
	"go.uber.org/fx"

	"github.com/botica-labs/botica/internal/cache"
	"github.com/botica-labs/botica/internal/config"
	"github.com/botica-labs/botica/internal/database"
	"github.com/botica-labs/botica/internal/logger"
	"github.com/botica-labs/botica/internal/messaging"
	"github.com/botica-labs/botica/internal/observability"
	repositorycatalog "github.com/botica-labs/botica/internal/repository/catalog"
	repositoryorder "github.com/botica-labs/botica/internal/repository/order"
	repositoryparty "github.com/botica-labs/botica/internal/repository/party"
	httpserver "github.com/botica-labs/botica/internal/server/http"
	serviceorder "github.com/botica-labs/botica/internal/service/order"
	transporthttp "github.com/botica-labs/botica/internal/transport/http"
	"github.com/botica-labs/botica/internal/worker"
	workerorder "github.com/botica-labs/botica/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositorycatalog.Module,
	repositoryorder.Module,
	repositoryparty.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
