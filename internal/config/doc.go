// Package config loads the YAML configuration file of the rvar CLI.
//
// # Configuration File Structure
//
//	runtime:
//	  frame_duration: 16ms
//	  time_scale: 1.0
//	  animations_enabled: true
//	  dispatch_queue_size: 256
//	  budget:
//	    max_passes: 1024
//	    max_modifications: 0
//	    max_sends_per_second: 0
//	    mode: defer
//	  debug:
//	    log_updates: false
//	    log_discarded: false
//	log:
//	  level: info
//	  format: text
//	inspector:
//	  addr: 127.0.0.1:7070
//	  history: 64
//	snapshot:
//	  dir: snapshots
//	  bucket: my-bucket
//	  prefix: rvar/
//	  region: us-east-1
//	  endpoint: http://localhost:9000
//	  path_style: true
//
// Every field is optional; missing fields keep their defaults.
//
// # Usage
//
//	cfg, err := config.Load("rvar.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rt := rvar.NewRuntime(rvar.WithConfig(cfg.Runtime.ToRuntime()))
package config
