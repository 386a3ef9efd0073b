// Package action holds the immutable registry of whitelisted actions.
//
// Each action is described by a Descriptor: the absolute interpreter path,
// the fixed argument vector, the installation directory used as the working
// directory, and the environment overrides applied to the child process.
// Descriptors come only from the manifest compiled into the binary
// (actions.yaml) and are resolved once at startup against the installation
// directory. Nothing a caller sends can add, replace or parameterise an
// action.
//
// Manifest layout:
//
//	actions:
//	  - name: install-node          # unique; also the ipc channel
//	    method: installNode         # unique; the Bridge function
//	    args: [..., "${APP_DIR}/scripts/install.ps1"]
//	    platforms:
//	      windows: {executable, env, default_env}
//	      default: {executable, env, default_env}
//
// ${APP_DIR} is the only expansion performed.
package action
