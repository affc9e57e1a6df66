// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/headermmr/corelog"
	"gitlab.com/jaxnet/headermmr/database"
	"gitlab.com/jaxnet/headermmr/node/metrics"
	"gitlab.com/jaxnet/headermmr/node/relay"
	"gitlab.com/jaxnet/headermmr/types/mmr"
)

const (
	LogUnitMain  = "MAIN"
	LogUnitDB    = "BCDB"
	LogUnitMMR   = "MMRS"
	LogUnitRelay = "RELY"
	LogUnitMetr  = "METR"
)

// unitLogs maps each subsystem identifier to the setter of its package logger.
var unitLogs = map[string]func(zerolog.Logger){
	LogUnitMain:  func(zerolog.Logger) {},
	LogUnitDB:    database.UseLogger,
	LogUnitMMR:   mmr.UseLogger,
	LogUnitRelay: relay.UseLogger,
	LogUnitMetr:  metrics.UseLogger,
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(unitLogs))
	for subsysID := range unitLogs {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseDebugLevels turns "level" or "unit=level,unit2=level" into the level
// of every subsystem.
func parseDebugLevels(debugLevel string) (map[string]zerolog.Level, error) {
	levels := make(map[string]zerolog.Level, len(unitLogs))

	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		level, err := corelog.ParseLevel(debugLevel)
		if err != nil {
			return nil, errors.Errorf("the specified debug level [%v] is invalid", debugLevel)
		}
		for subsysID := range unitLogs {
			levels[subsysID] = level
		}
		return levels, nil
	}

	for subsysID := range unitLogs {
		levels[subsysID] = corelog.DefaultLevel
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(logLevelPair, "=")
		if len(fields) != 2 {
			return nil, errors.Errorf("the specified debug level contains an invalid "+
				"subsystem/level pair [%v]", logLevelPair)
		}

		subsysID, logLevel := fields[0], fields[1]
		if _, exists := unitLogs[subsysID]; !exists {
			return nil, errors.Errorf("the specified subsystem [%v] is invalid -- "+
				"supported subsytems %v", subsysID, supportedSubsystems())
		}

		level, err := corelog.ParseLevel(logLevel)
		if err != nil {
			return nil, errors.Errorf("the specified debug level [%v] is invalid", logLevel)
		}
		levels[subsysID] = level
	}
	return levels, nil
}

// SetupLogging builds one logger per subsystem from the debug level and the
// log options, hands them to their packages and returns the MAIN logger.
func (cfg *Config) SetupLogging() (zerolog.Logger, error) {
	levels, err := parseDebugLevels(cfg.DebugLevel)
	if err != nil {
		return corelog.Disabled, err
	}

	var main zerolog.Logger
	for subsysID, useLogger := range unitLogs {
		logger := corelog.New(subsysID, levels[subsysID], cfg.Log)
		useLogger(logger)
		if subsysID == LogUnitMain {
			main = logger
		}
	}
	return main, nil
}
