// Package config provides configuration management for rpcgolden.
//
// This package implements a layered configuration system. Configuration is
// loaded from several sources and merged in a fixed order, with later sources
// overriding earlier ones.
//
// # Configuration Layers
//
//  1. Default Configuration (embedded in binary)
//     - kore-rpc on 127.0.0.1:31337, module TEST, cases under ./execute
//
//  2. Project Configuration (./.rpcgolden.yaml, or the file passed with --config)
//     - Lets a fixture tree pin its server binary, ports and timeouts
//
//  3. Environment
//     - CREATE_MISSING_GOLDEN and RECREATE_BROKEN_GOLDEN ("true", "1" or "t",
//     case-insensitive) toggle the golden write policies
//     - NO_COLOR disables coloured diffs
//
//  4. Command line flags, applied by the cmd package
//
// # Configuration Structure
//
//	server:
//	  binary: kore-rpc
//	  module: TEST
//	  host: 127.0.0.1
//	  port: 31337
//	  readyTimeout: 30s
//	  readTimeout: 2m
//	cases:
//	  dir: execute
//	implies:
//	  enabled: false
//	  dir: implies
//	  definition: test-kompiled/definition.kore
//	golden:
//	  createMissing: false
//	  recreateBroken: false
//	run:
//	  parallel: 1
//	  keepGoing: false
package config
