// Package harmonia provides declarative configuration composition and lifecycle
// orchestration for clustered service agents, combining deep-merge configuration
// trees, derived settings, validated resource expansion, and an ordered
// install/configure/run/reload lifecycle in a single, cohesive system.
//
// # Philosophy: Declared Intent, Composed Configuration
//
// Harmonia is built on the principle that agent configuration should be declared,
// not scripted. Operators supply a defaults tree, an overrides tree, and keyed
// maps of sub-resources (services, health checks, watches, ACL entries); Harmonia
// validates every input, merges the trees with well-defined precedence, derives
// the dependent settings the agent needs, and drives the platform collaborators
// that install, configure, and run the agent binary.
//
// # Architecture Overview
//
// Harmonia consists of five integrated subsystems:
//  1. **Validator**: Type and shape checks for every configuration input
//  2. **Merge Engine**: Right-biased recursive deep merge of configuration trees
//  3. **Derivation Engine**: Dependent settings (ports, bind addresses, directories)
//     with explicit fallback chains and non-fatal policy warnings
//  4. **Resource Expander**: Keyed resource maps expanded into schema-validated,
//     typed resource declarations with fail-fast semantics
//  5. **Lifecycle Orchestrator**: Explicit finite-state machine over
//     Install, Configure, Run, and Reload with restart-on-change gating
//
// # Composition
//
// A full composition pass is a single call:
//
//	composer, err := harmonia.NewComposer(harmonia.Options{
//		Version: "1.16.2",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer composer.Close()
//
//	cfg, err := composer.Compose(&harmonia.Inputs{
//		ConfigDefaults: harmonia.ConfigTree{"ports": map[string]interface{}{"rpc": 8400}},
//		ConfigHash:     harmonia.ConfigTree{"dataDir": "/var/lib/agent"},
//		Services: map[string]harmonia.RawResource{
//			"web": {"port": 8080, "tags": []string{"primary"}},
//		},
//	})
//
// The resulting EffectiveConfig is immutable: the merged tree, the derived
// scalar settings (rpcPort, rpcBindAddress, dataDir, uiDir), the expanded
// resource declarations, and the install coordinates for the target platform.
//
// # Lifecycle Orchestration
//
// Applying an effective configuration walks a strictly linear state machine:
//
//	Install -> Configure -> Run -> Reload
//
// The Configure stage reports whether the rendered configuration differed from
// the previously persisted one; the Run stage restarts the service only when a
// change was detected AND restart-on-change is enabled. Each stage invokes an
// external collaborator (Installer, ConfigRenderer, ServiceManager, ReloadArmer)
// and any collaborator failure aborts the pass, tagged with the stage name.
//
//	err := composer.Apply(cfg, harmonia.Collaborators{
//		Installer: pkgInstaller,
//		Renderer:  renderer, // e.g. harmonia.NewFileRenderer(...)
//		Service:   serviceManager,
//		Reloader:  reloadArmer,
//	})
//
// # Error Handling and Observability
//
// Harmonia provides comprehensive error handling and observability:
//   - Coded errors (HARMONIA_*) with originating field, resource key, or stage
//   - Non-fatal PolicyWarning values surfaced through a configurable handler
//   - Audit trail for composition passes and lifecycle stage transitions,
//     with SQLite and JSONL storage backends
//
// # Thread Safety and Concurrency
//
// The composition pass is pure and single-threaded; the four resource kinds are
// expanded concurrently with aggregate fail-fast semantics. Lifecycle stages are
// strictly sequential by contract and are never parallelized.
//
// Repository: https://github.com/agilira/harmonia
package harmonia
