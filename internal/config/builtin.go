package config

// BuiltinPositions returns the default 3x2 grid of 640x480 cells.
func BuiltinPositions() PositionList {
	return PositionList{
		{Key: "top_left", Name: "Top Left", Coords: [2]int{0, 0}},
		{Key: "top_mid", Name: "Top Center", Coords: [2]int{640, 0}},
		{Key: "top_right", Name: "Top Right", Coords: [2]int{1280, 0}},
		{Key: "bottom_left", Name: "Bottom Left", Coords: [2]int{0, 480}},
		{Key: "bottom_mid", Name: "Bottom Center", Coords: [2]int{640, 480}},
		{Key: "bottom_right", Name: "Bottom Right", Coords: [2]int{1280, 480}},
	}
}

// BuiltinUIText returns the default labels used by the terminal UI.
func BuiltinUIText() Catalog {
	return Catalog{
		"add_program.title":               "Add Program",
		"add_program.program_label":       "Program",
		"add_program.program_placeholder": "Path to the executable",
		"add_program.params_label":        "Arguments",
		"add_program.position_label":      "Position",
		"program_list.title":              "Running Instances",
		"program_list.columns.id":         "ID",
		"program_list.columns.name":       "Program",
		"program_list.columns.position":   "Position",
		"program_list.columns.status":     "Status",
		"program_list.columns.pid":        "PID",
		"controls.launch":                 "Launch",
		"controls.position_adjust":        "Adjust Position",
		"controls.terminate_program":      "Terminate",
		"controls.terminate_all":          "Terminate All",
		"position_change.title":           "Change Position",
		"log.title":                       "Activity Log",
	}
}

// BuiltinMessages returns the default activity log catalogue.
func BuiltinMessages() Catalog {
	return Catalog{
		"launcher_started":                    "Launcher started.",
		"launcher_closing":                    "Closing launcher, terminating all programs...",
		"program_selected":                    "Program selected: {filename}",
		"program_execution_start":             "Starting program #{id}",
		"program_name":                        "Program: {name}",
		"position_set":                        "Position: {position}",
		"auto_position_start":                 "Program #{id}: searching for its window...",
		"position_adjust_success":             "Program #{id}: window positioned (PID {pid})",
		"position_adjust_failed":              "Program #{id}: window not found, position not applied",
		"position_adjust_manual_success":      "Program #{id}: position changed",
		"program_terminated":                  "Program #{id} terminated (PID {pid})",
		"all_programs_terminated":             "All programs terminated.",
		"program_closed":                      "Program #{id} has closed.",
		"config_defaults":                     "Config file not found, using built-in defaults.",
		"progress.waiting_for_process":        "Program #{id}: waiting for window (attempt {attempt})",
		"progress.attempt_error":              "Program #{id}: attempt {attempt} failed: {error}",
		"progress.position_adjusting":         "Program #{id}: moving to {position}",
		"progress.program_selected_ui":        "Selected program #{id}",
		"progress.program_terminating":        "Terminating program #{id}...",
		"progress.all_programs_terminating":   "Terminating all programs...",
		"warnings.process_not_found":          "Program #{id}: process not found",
		"warnings.process_already_terminated": "Program #{id}: process already exited (PID {pid})",
		"warnings.position_not_applied":       "Program #{id}: could not move window: {error}",
		"errors.program_not_found":            "Program not found: {path}",
		"errors.program_execution_error":      "Program #{id}: failed to start: {error}",
		"errors.program_info_not_found":       "Program #{id}: no such instance",
		"errors.terminate_error":              "Program #{id}: terminate failed: {error}",
		"errors.position_adjust_error":        "Program #{id}: position change failed: {error}",
		"errors.unknown_position":             "Unknown position: {position}",
		"errors.monitoring_error":             "Monitoring error: {error}",
		"errors.no_program_selected":          "Please select a program first.",
		"errors.no_program_to_adjust":         "Select an instance to move first.",
		"errors.no_program_to_terminate":      "Select an instance to terminate first.",
		"errors.artifact_remove_error":        "Could not remove launch manifest {path}: {error}",
	}
}
