package schema

func col(name, typ string) Column     { return Column{Name: name, Type: typ} }
func nn(name, typ string) Column      { return Column{Name: name, Type: typ, NotNull: true} }

// allTables is the single authoritative list every DDL statement,
// INSERT helper, and batch container is derived from. Order matters:
// it is also the FK-safe flush order the relational store uses, so a
// table must appear after every table it references.
var allTables = []Table{
	{
		Name: "files",
		Columns: []Column{
			nn("path", "TEXT"), nn("sha256", "TEXT"), nn("ext", "TEXT"),
			nn("bytes", "INTEGER"), nn("loc", "INTEGER"),
		},
		PrimaryKey: []string{"path"},
	},
	{
		Name: "symbols",
		Columns: []Column{
			nn("path", "TEXT"), nn("name", "TEXT"), nn("kind", "TEXT"),
			nn("line", "INTEGER"), nn("col", "INTEGER"),
			col("end_line", "INTEGER"), col("type_annotation", "TEXT"),
			col("parameters_json", "TEXT"),
		},
		PrimaryKey:  []string{"path", "name", "line", "kind"},
		ForeignKeys: []ForeignKey{{Columns: []string{"path"}, RefTable: "files", RefColumns: []string{"path"}}},
		Indexes:     []Index{{Name: "idx_symbols_name", Columns: []string{"name"}}},
	},
	{
		Name: "config_files",
		Columns: []Column{
			nn("path", "TEXT"), nn("content", "TEXT"), nn("type", "TEXT"),
			col("context_dir", "TEXT"),
		},
		PrimaryKey:  []string{"path"},
		ForeignKeys: []ForeignKey{{Columns: []string{"path"}, RefTable: "files", RefColumns: []string{"path"}}},
	},
	{
		Name: "refs",
		Columns: []Column{
			nn("src", "TEXT"), nn("kind", "TEXT"), nn("value", "TEXT"), col("line", "INTEGER"),
		},
		PrimaryKey:  []string{"src", "kind", "value", "line"},
		ForeignKeys: []ForeignKey{{Columns: []string{"src"}, RefTable: "files", RefColumns: []string{"path"}}},
	},
	{
		Name: "import_styles",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("package", "TEXT"),
			nn("style", "TEXT"), col("names", "TEXT"), col("alias", "TEXT"),
		},
		PrimaryKey:  []string{"file", "line", "package"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file"}, RefTable: "files", RefColumns: []string{"path"}}},
	},
	{
		Name: "import_specifiers",
		Columns: []Column{
			nn("file", "TEXT"), nn("import_line", "INTEGER"), nn("specifier_name", "TEXT"),
		},
		PrimaryKey:  []string{"file", "import_line", "specifier_name"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file", "import_line"}, RefTable: "import_styles", RefColumns: []string{"file", "line"}}},
	},
	{
		Name: "assignments",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("target_var", "TEXT"),
			nn("source_expr", "TEXT"), nn("in_function", "TEXT"), col("property_path", "TEXT"),
		},
		PrimaryKey:  []string{"file", "line", "target_var"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file"}, RefTable: "files", RefColumns: []string{"path"}}},
	},
	{
		Name: "assignment_sources",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("target_var", "TEXT"), nn("source_var_name", "TEXT"),
		},
		PrimaryKey:  []string{"file", "line", "target_var", "source_var_name"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file", "line", "target_var"}, RefTable: "assignments", RefColumns: []string{"file", "line", "target_var"}}},
	},
	{
		Name: "function_call_args",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("caller_function", "TEXT"),
			nn("callee_function", "TEXT"), nn("argument_index", "INTEGER"),
			nn("argument_expr", "TEXT"), col("param_name", "TEXT"), col("callee_file_path", "TEXT"),
		},
		PrimaryKey:  []string{"file", "line", "callee_function", "argument_index"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file"}, RefTable: "files", RefColumns: []string{"path"}}},
		Indexes:     []Index{{Name: "idx_fca_callee", Columns: []string{"callee_function"}}},
	},
	{
		Name: "function_returns",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("function_name", "TEXT"), nn("return_expr", "TEXT"),
		},
		PrimaryKey:  []string{"file", "line", "function_name"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file"}, RefTable: "files", RefColumns: []string{"path"}}},
	},
	{
		Name: "function_return_sources",
		Columns: []Column{
			nn("return_file", "TEXT"), nn("return_line", "INTEGER"),
			nn("return_function", "TEXT"), nn("return_var_name", "TEXT"),
		},
		PrimaryKey: []string{"return_file", "return_line", "return_function", "return_var_name"},
		ForeignKeys: []ForeignKey{{
			Columns: []string{"return_file", "return_line", "return_function"}, RefTable: "function_returns",
			RefColumns: []string{"file", "line", "function_name"},
		}},
	},

	// JSX-preserved parallels of the five flow tables above, written by
	// the second extraction pass over .jsx/.tsx files (spec §4.C).
	{
		Name:       "assignments_jsx",
		Columns:    []Column{nn("file", "TEXT"), nn("line", "INTEGER"), nn("target_var", "TEXT"), nn("source_expr", "TEXT"), nn("in_function", "TEXT"), col("property_path", "TEXT")},
		PrimaryKey: []string{"file", "line", "target_var"},
	},
	{
		Name:       "assignment_sources_jsx",
		Columns:    []Column{nn("file", "TEXT"), nn("line", "INTEGER"), nn("target_var", "TEXT"), nn("source_var_name", "TEXT")},
		PrimaryKey: []string{"file", "line", "target_var", "source_var_name"},
	},
	{
		Name:       "function_call_args_jsx",
		Columns:    []Column{nn("file", "TEXT"), nn("line", "INTEGER"), nn("caller_function", "TEXT"), nn("callee_function", "TEXT"), nn("argument_index", "INTEGER"), nn("argument_expr", "TEXT"), col("param_name", "TEXT"), col("callee_file_path", "TEXT")},
		PrimaryKey: []string{"file", "line", "callee_function", "argument_index"},
	},
	{
		Name:       "function_returns_jsx",
		Columns:    []Column{nn("file", "TEXT"), nn("line", "INTEGER"), nn("function_name", "TEXT"), nn("return_expr", "TEXT")},
		PrimaryKey: []string{"file", "line", "function_name"},
	},
	{
		Name:       "function_return_sources_jsx",
		Columns:    []Column{nn("return_file", "TEXT"), nn("return_line", "INTEGER"), nn("return_function", "TEXT"), nn("return_var_name", "TEXT")},
		PrimaryKey: []string{"return_file", "return_line", "return_function", "return_var_name"},
	},

	// Control flow. cfg_blocks is the one auto-assigned-id table in the
	// whole schema; everything downstream references it by temporary
	// negative id until flush translates it (internal/store).
	{
		Name: "cfg_blocks",
		Columns: []Column{
			nn("id", "INTEGER"), nn("file", "TEXT"), nn("function_name", "TEXT"),
			nn("block_type", "TEXT"), nn("start_line", "INTEGER"), nn("end_line", "INTEGER"),
			col("condition_expr", "TEXT"),
		},
		PrimaryKey: []string{"id"},
		AutoID:     true,
	},
	{
		Name: "cfg_edges",
		Columns: []Column{
			nn("source_block_id", "INTEGER"), nn("target_block_id", "INTEGER"), nn("edge_type", "TEXT"),
		},
		PrimaryKey: []string{"source_block_id", "target_block_id", "edge_type"},
		ForeignKeys: []ForeignKey{
			{Columns: []string{"source_block_id"}, RefTable: "cfg_blocks", RefColumns: []string{"id"}},
			{Columns: []string{"target_block_id"}, RefTable: "cfg_blocks", RefColumns: []string{"id"}},
		},
	},
	{
		Name: "cfg_block_statements",
		Columns: []Column{
			nn("block_id", "INTEGER"), nn("statement_type", "TEXT"), nn("line", "INTEGER"), col("statement_text", "TEXT"),
		},
		PrimaryKey:  []string{"block_id", "line", "statement_type"},
		ForeignKeys: []ForeignKey{{Columns: []string{"block_id"}, RefTable: "cfg_blocks", RefColumns: []string{"id"}}},
	},
	{
		Name:       "cfg_blocks_jsx",
		Columns:    []Column{nn("id", "INTEGER"), nn("file", "TEXT"), nn("function_name", "TEXT"), nn("block_type", "TEXT"), nn("start_line", "INTEGER"), nn("end_line", "INTEGER"), col("condition_expr", "TEXT")},
		PrimaryKey: []string{"id"},
		AutoID:     true,
	},
	{
		Name:       "cfg_edges_jsx",
		Columns:    []Column{nn("source_block_id", "INTEGER"), nn("target_block_id", "INTEGER"), nn("edge_type", "TEXT")},
		PrimaryKey: []string{"source_block_id", "target_block_id", "edge_type"},
	},
	{
		Name:       "cfg_block_statements_jsx",
		Columns:    []Column{nn("block_id", "INTEGER"), nn("statement_type", "TEXT"), nn("line", "INTEGER"), col("statement_text", "TEXT")},
		PrimaryKey: []string{"block_id", "line", "statement_type"},
	},

	// Routing and middleware.
	{
		Name: "api_endpoints",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("method", "TEXT"), nn("pattern", "TEXT"),
			nn("path", "TEXT"), col("full_path", "TEXT"), nn("has_auth", "INTEGER"), nn("handler_function", "TEXT"),
		},
		PrimaryKey:  []string{"file", "line", "method", "pattern"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file"}, RefTable: "files", RefColumns: []string{"path"}}},
	},
	{
		Name: "api_endpoint_controls",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("control_name", "TEXT"),
		},
		PrimaryKey:  []string{"file", "line", "control_name"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file", "line"}, RefTable: "api_endpoints", RefColumns: []string{"file", "line"}}},
	},
	{
		Name: "router_mounts",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("mount_path_expr", "TEXT"),
			nn("router_variable", "TEXT"), nn("is_literal", "INTEGER"),
		},
		PrimaryKey:  []string{"file", "line", "router_variable"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file"}, RefTable: "files", RefColumns: []string{"path"}}},
	},
	{
		Name: "express_middleware_chains",
		Columns: []Column{
			nn("file", "TEXT"), nn("route_line", "INTEGER"), nn("route_path", "TEXT"), nn("route_method", "TEXT"),
			nn("execution_order", "INTEGER"), nn("handler_expr", "TEXT"), nn("handler_type", "TEXT"),
			col("handler_function", "TEXT"), col("handler_file", "TEXT"),
		},
		PrimaryKey:  []string{"file", "route_line", "execution_order"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file"}, RefTable: "files", RefColumns: []string{"path"}}},
	},

	// Validation and safe sinks.
	{
		Name: "framework_safe_sinks",
		Columns: []Column{
			nn("framework_id", "TEXT"), nn("sink_pattern", "TEXT"), nn("sink_type", "TEXT"),
			nn("is_safe", "INTEGER"), col("reason", "TEXT"),
		},
		PrimaryKey: []string{"framework_id", "sink_pattern", "sink_type"},
	},
	{
		Name: "framework_taint_patterns",
		Columns: []Column{
			nn("framework_id", "TEXT"), nn("pattern", "TEXT"), nn("direction", "TEXT"), nn("category", "TEXT"),
		},
		PrimaryKey: []string{"framework_id", "pattern", "direction"},
	},
	{
		Name: "validation_framework_usage",
		Columns: []Column{
			nn("file_path", "TEXT"), nn("line", "INTEGER"), nn("framework", "TEXT"), nn("method", "TEXT"),
			nn("argument_expr", "TEXT"), nn("is_validator", "INTEGER"), col("variable_name", "TEXT"),
		},
		PrimaryKey:  []string{"file_path", "line", "method"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file_path"}, RefTable: "files", RefColumns: []string{"path"}}},
		Indexes:     []Index{{Name: "idx_vfu_file_line", Columns: []string{"file_path", "line"}}},
	},

	// SQL.
	{
		Name:       "sql_objects",
		Columns:    []Column{nn("file", "TEXT"), nn("kind", "TEXT"), nn("name", "TEXT")},
		PrimaryKey: []string{"file", "kind", "name"},
	},
	{
		Name: "sql_queries",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("query_text", "TEXT"),
			nn("command", "TEXT"), nn("extraction_source", "TEXT"),
		},
		PrimaryKey: []string{"file", "line"},
	},
	{
		Name:       "sql_query_tables",
		Columns:    []Column{nn("file", "TEXT"), nn("line", "INTEGER"), nn("table_name", "TEXT")},
		PrimaryKey: []string{"file", "line", "table_name"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file", "line"}, RefTable: "sql_queries", RefColumns: []string{"file", "line"}}},
	},

	// ORM facts (Prisma, Sequelize, SQLAlchemy-style) -- domain-stack
	// wiring for frameworks that mediate sql_queries through a model layer.
	{
		Name:       "orm_models",
		Columns:    []Column{nn("file", "TEXT"), nn("line", "INTEGER"), nn("framework", "TEXT"), nn("model_name", "TEXT")},
		PrimaryKey: []string{"file", "line", "model_name"},
	},
	{
		Name: "orm_fields",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("model_name", "TEXT"), nn("field_name", "TEXT"),
			nn("field_type", "TEXT"), nn("is_sensitive", "INTEGER"),
		},
		PrimaryKey:  []string{"file", "model_name", "field_name"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file", "line", "model_name"}, RefTable: "orm_models", RefColumns: []string{"file", "line", "model_name"}}},
	},

	// GraphQL.
	{
		Name:       "graphql_types",
		Columns:    []Column{nn("file", "TEXT"), nn("line", "INTEGER"), nn("type_name", "TEXT"), nn("kind", "TEXT")},
		PrimaryKey: []string{"file", "type_name"},
	},
	{
		Name: "graphql_fields",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("type_name", "TEXT"), nn("field_name", "TEXT"),
			nn("field_type", "TEXT"), col("resolver_function", "TEXT"),
		},
		PrimaryKey:  []string{"file", "type_name", "field_name"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file", "type_name"}, RefTable: "graphql_types", RefColumns: []string{"file", "type_name"}}},
	},

	// Docker.
	{
		Name: "docker_instructions",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("instruction", "TEXT"),
			nn("arguments", "TEXT"), col("stage_name", "TEXT"),
		},
		PrimaryKey: []string{"file", "line"},
	},
	{
		Name: "docker_images",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("image", "TEXT"),
			col("tag", "TEXT"), col("stage_name", "TEXT"),
		},
		PrimaryKey: []string{"file", "line"},
	},

	// docker-compose.
	{
		Name:       "compose_services",
		Columns:    []Column{nn("file", "TEXT"), nn("line", "INTEGER"), nn("service_name", "TEXT"), col("image", "TEXT")},
		PrimaryKey: []string{"file", "service_name"},
	},
	{
		Name: "compose_service_ports",
		Columns: []Column{
			nn("file", "TEXT"), nn("service_name", "TEXT"), nn("host_port", "TEXT"), nn("container_port", "TEXT"),
		},
		PrimaryKey:  []string{"file", "service_name", "host_port", "container_port"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file", "service_name"}, RefTable: "compose_services", RefColumns: []string{"file", "service_name"}}},
	},
	{
		Name: "compose_service_env",
		Columns: []Column{
			nn("file", "TEXT"), nn("service_name", "TEXT"), nn("key", "TEXT"), col("value_expr", "TEXT"),
		},
		PrimaryKey:  []string{"file", "service_name", "key"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file", "service_name"}, RefTable: "compose_services", RefColumns: []string{"file", "service_name"}}},
	},

	// GitHub Actions.
	{
		Name:       "github_actions_workflows",
		Columns:    []Column{nn("file", "TEXT"), nn("name", "TEXT"), col("on_triggers_json", "TEXT")},
		PrimaryKey: []string{"file"},
	},
	{
		Name:       "github_actions_jobs",
		Columns:    []Column{nn("file", "TEXT"), nn("job_id", "TEXT"), col("runs_on", "TEXT"), nn("line", "INTEGER")},
		PrimaryKey: []string{"file", "job_id"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file"}, RefTable: "github_actions_workflows", RefColumns: []string{"file"}}},
	},
	{
		Name: "github_actions_steps",
		Columns: []Column{
			nn("file", "TEXT"), nn("job_id", "TEXT"), nn("step_index", "INTEGER"), col("name", "TEXT"),
			col("uses", "TEXT"), col("run_script", "TEXT"), nn("line", "INTEGER"),
		},
		PrimaryKey:  []string{"file", "job_id", "step_index"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file", "job_id"}, RefTable: "github_actions_jobs", RefColumns: []string{"file", "job_id"}}},
	},

	// Forward Flow Resolver output (spec §4.G): every source->exit path,
	// deduplicated to the shortest hop chain per (source_file,
	// source_pattern, sink_file, sink_pattern, status, sanitizer_method).
	{
		Name: "resolved_flow_audit",
		Columns: []Column{
			nn("source_file", "TEXT"), nn("source_line", "INTEGER"), nn("source_pattern", "TEXT"),
			nn("sink_file", "TEXT"), nn("sink_line", "INTEGER"), nn("sink_pattern", "TEXT"),
			nn("status", "TEXT"), col("sanitizer_file", "TEXT"), col("sanitizer_line", "INTEGER"),
			col("sanitizer_method", "TEXT"), nn("vulnerability_kind", "TEXT"), nn("hop_chain_json", "TEXT"),
		},
		PrimaryKey: []string{"source_file", "source_pattern", "sink_file", "sink_pattern", "status", "sanitizer_method"},
	},

	// IFDS backward-engine output: one row per recorded source->sink path,
	// vulnerable or sanitized, with full hop provenance (spec §4.F).
	{
		Name: "taint_findings",
		Columns: []Column{
			nn("source_file", "TEXT"), nn("source_line", "INTEGER"), nn("source_pattern", "TEXT"),
			nn("sink_file", "TEXT"), nn("sink_line", "INTEGER"), nn("sink_pattern", "TEXT"),
			nn("status", "TEXT"), col("sanitizer_file", "TEXT"), col("sanitizer_line", "INTEGER"),
			col("sanitizer_method", "TEXT"), nn("vulnerability_kind", "TEXT"), nn("hop_chain_json", "TEXT"),
		},
		PrimaryKey: []string{"source_file", "source_line", "sink_file", "sink_line", "sink_pattern"},
	},

	// Terraform.
	{
		Name:       "terraform_resources",
		Columns:    []Column{nn("file", "TEXT"), nn("line", "INTEGER"), nn("resource_type", "TEXT"), nn("resource_name", "TEXT")},
		PrimaryKey: []string{"file", "resource_type", "resource_name"},
	},
	{
		Name: "terraform_attributes",
		Columns: []Column{
			nn("file", "TEXT"), nn("line", "INTEGER"), nn("resource_type", "TEXT"), nn("resource_name", "TEXT"),
			nn("attribute_path", "TEXT"), col("value_expr", "TEXT"),
		},
		PrimaryKey:  []string{"file", "resource_type", "resource_name", "attribute_path"},
		ForeignKeys: []ForeignKey{{Columns: []string{"file", "resource_type", "resource_name"}, RefTable: "terraform_resources", RefColumns: []string{"file", "resource_type", "resource_name"}}},
	},
}
