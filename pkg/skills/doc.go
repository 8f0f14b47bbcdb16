// Package skills provides the skill registry and the optional plugin bundle loader.
//
// # Overview
//
// A Skill contributes extension handlers and templates for a feature type.
// Free skills are compiled into the binary; premium skills usually arrive in
// an external bundle that may or may not be installed.
//
// # Registry
//
// Registry is an explicitly constructed, process-wide map of skills keyed by
// ID. Registering an existing ID replaces it with a warning. Lookups by
// feature type return the first match in registration order.
//
//	registry := skills.NewRegistry(log)
//	handler := registry.ResolveExtension(features.DPIA, skills.ExtensionReportRenderer)
//
// # Loading Bundles
//
// Loader resolves bundle names through a PluginSource and registers the skills
// it finds. A bundle that is not installed is not an error, and neither is a
// bundle that fails to load: both are logged and the process continues.
//
//	source := skills.NewChainSource(log,
//		skills.NewManifestSource([]string{"/etc/skillgate/plugins"}, log),
//		skills.NewSharedObjectSource("/usr/lib/skillgate", log),
//	)
//	loader := skills.NewLoader(registry, source, log)
//	ids, err := loader.LoadDefaultPremiumBundle(ctx)
//
// Available sources:
//   - StaticSource: bundles compiled into the binary
//   - ManifestSource: <dir>/<bundle>/bundle.yaml
//   - SharedObjectSource: <dir>/<bundle>.so exporting Skills or Skill
//   - S3ManifestSource: s3://<bucket>/<prefix>/<bundle>/bundle.yaml
//   - ChainSource: first source that has the bundle wins
//
// # Bundle Manifest
//
//	name: premium-skills
//	skills:
//	  - id: com.privacy.dpia
//	    name: Data Protection Impact Assessment
//	    version: 1.0.0
//	    feature_type: DPIA
//	    premium: true
//	    extensions:
//	      new-item-form:
//	        sections: [processing, necessity, risks]
//	    templates:
//	      - id: dpia-gdpr-art35
//	        name: GDPR Article 35
//
// Watcher picks up bundles installed into manifest directories after startup.
package skills
