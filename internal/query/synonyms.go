package query

import (
	"sort"
	"strings"
)

// defaultSynonyms is a static, bidirectional equivalence-class synonym
// table for common technical documentation vocabulary, built once at
// init and never mutated (spec §4.D step 2, §9's "module-global
// synonym dictionary, immutable, constructed once" pattern).
var defaultSynonyms = buildSynonymSet(map[string][]string{
	"async":        {"async", "asynchronous"},
	"asynchronous": {"async", "asynchronous"},
	"sync":         {"sync", "synchronous"},
	"synchronous":  {"sync", "synchronous"},

	"auth":           {"auth", "authentication", "authorization"},
	"authentication": {"auth", "authentication"},
	"authorization":  {"auth", "authorization"},

	"config":        {"config", "configuration", "configure", "configs"},
	"configuration": {"config", "configuration", "configure", "configs"},
	"configure":     {"config", "configuration", "configure", "configs"},
	"configs":       {"config", "configuration", "configure", "configs"},

	"db":        {"db", "database", "databases"},
	"database":  {"db", "database", "databases"},
	"databases": {"db", "database", "databases"},

	"env":          {"env", "environment", "environments"},
	"environment":  {"env", "environment", "environments"},
	"environments": {"env", "environment", "environments"},

	"repo":         {"repo", "repository", "repositories"},
	"repository":   {"repo", "repository", "repositories"},
	"repositories": {"repo", "repository", "repositories"},

	"app":          {"app", "application", "applications"},
	"application":  {"app", "application", "applications"},
	"applications": {"app", "application", "applications"},

	"req":       {"req", "request", "requests"},
	"request":   {"req", "request", "requests"},
	"requests":  {"req", "request", "requests"},
	"res":       {"res", "response", "responses"},
	"response":  {"res", "response", "responses"},
	"responses": {"res", "response", "responses"},

	"doc":           {"doc", "docs", "documentation"},
	"docs":          {"doc", "docs", "documentation"},
	"documentation": {"doc", "docs", "documentation"},

	"param":      {"param", "parameter", "parameters", "params"},
	"parameter":  {"param", "parameter", "parameters", "params"},
	"parameters": {"param", "parameter", "parameters", "params"},
	"params":     {"param", "parameter", "parameters", "params"},
	"arg":        {"arg", "argument", "arguments", "args"},
	"argument":   {"arg", "argument", "arguments", "args"},
	"arguments":  {"arg", "argument", "arguments", "args"},
	"args":       {"arg", "argument", "arguments", "args"},

	"func":      {"func", "function", "functions"},
	"function":  {"func", "function", "functions"},
	"functions": {"func", "function", "functions"},
	"method":    {"method", "methods"},
	"methods":   {"method", "methods"},

	"msg":      {"msg", "message", "messages"},
	"message":  {"msg", "message", "messages"},
	"messages": {"msg", "message", "messages"},

	"obj":     {"obj", "object", "objects"},
	"object":  {"obj", "object", "objects"},
	"objects": {"obj", "object", "objects"},

	"err":        {"err", "error", "errors"},
	"error":      {"err", "error", "errors"},
	"errors":     {"err", "error", "errors"},
	"exc":        {"exc", "exception", "exceptions"},
	"exception":  {"exc", "exception", "exceptions"},
	"exceptions": {"exc", "exception", "exceptions"},

	"srv":      {"srv", "server", "servers"},
	"server":   {"srv", "server", "servers"},
	"servers":  {"srv", "server", "servers"},
	"svc":      {"svc", "service", "services"},
	"service":  {"svc", "service", "services"},
	"services": {"svc", "service", "services"},

	"model":  {"model", "models"},
	"models": {"model", "models"},

	"resource":  {"resource", "resources"},
	"resources": {"resource", "resources"},

	"query":   {"query", "queries"},
	"queries": {"query", "queries"},

	"task":  {"task", "tasks"},
	"tasks": {"task", "tasks"},

	"event":  {"event", "events"},
	"events": {"event", "events"},

	"component":  {"component", "components"},
	"components": {"component", "components"},

	"container":  {"container", "containers"},
	"containers": {"container", "containers"},

	"token":  {"token", "tokens"},
	"tokens": {"token", "tokens"},

	"create":   {"create", "creates", "creating", "created", "creation"},
	"creates":  {"create", "creates", "creating", "created", "creation"},
	"creating": {"create", "creates", "creating", "created", "creation"},
	"created":  {"create", "creates", "creating", "created", "creation"},
	"creation": {"create", "creates", "creating", "created", "creation"},

	"build":    {"build", "builds", "building", "built"},
	"builds":   {"build", "builds", "building", "built"},
	"building": {"build", "builds", "building", "built"},
	"built":    {"build", "builds", "building", "built"},

	"deploy":      {"deploy", "deploys", "deploying", "deployed", "deployment", "deployments"},
	"deploys":     {"deploy", "deploys", "deploying", "deployed", "deployment", "deployments"},
	"deploying":   {"deploy", "deploys", "deploying", "deployed", "deployment", "deployments"},
	"deployed":    {"deploy", "deploys", "deploying", "deployed", "deployment", "deployments"},
	"deployment":  {"deploy", "deploys", "deploying", "deployed", "deployment", "deployments"},
	"deployments": {"deploy", "deploys", "deploying", "deployed", "deployment", "deployments"},

	"install":      {"install", "installs", "installing", "installed", "installation"},
	"installs":     {"install", "installs", "installing", "installed", "installation"},
	"installing":   {"install", "installs", "installing", "installed", "installation"},
	"installed":    {"install", "installs", "installing", "installed", "installation"},
	"installation": {"install", "installs", "installing", "installed", "installation"},

	"update":   {"update", "updates", "updating", "updated"},
	"updates":  {"update", "updates", "updating", "updated"},
	"updating": {"update", "updates", "updating", "updated"},
	"updated":  {"update", "updates", "updating", "updated"},

	"delete":   {"delete", "deletes", "deleting", "deleted", "deletion"},
	"deletes":  {"delete", "deletes", "deleting", "deleted", "deletion"},
	"deleting": {"delete", "deletes", "deleting", "deleted", "deletion"},
	"deleted":  {"delete", "deletes", "deleting", "deleted", "deletion"},
	"deletion": {"delete", "deletes", "deleting", "deleted", "deletion"},
	"remove":   {"remove", "removes", "removing", "removed", "removal"},
	"removes":  {"remove", "removes", "removing", "removed", "removal"},
	"removing": {"remove", "removes", "removing", "removed", "removal"},
	"removed":  {"remove", "removes", "removing", "removed", "removal"},
	"removal":  {"remove", "removes", "removing", "removed", "removal"},

	"validate":   {"validate", "validates", "validating", "validated", "validation"},
	"validates":  {"validate", "validates", "validating", "validated", "validation"},
	"validating": {"validate", "validates", "validating", "validated", "validation"},
	"validated":  {"validate", "validates", "validating", "validated", "validation"},
	"validation": {"validate", "validates", "validating", "validated", "validation"},

	"test":    {"test", "tests", "testing", "tested"},
	"tests":   {"test", "tests", "testing", "tested"},
	"testing": {"test", "tests", "testing", "tested"},
	"tested":  {"test", "tests", "testing", "tested"},

	"exec":      {"exec", "execute", "executes", "executing", "executed", "execution"},
	"execute":   {"exec", "execute", "executes", "executing", "executed", "execution"},
	"executes":  {"exec", "execute", "executes", "executing", "executed", "execution"},
	"executing": {"exec", "execute", "executes", "executing", "executed", "execution"},
	"executed":  {"exec", "execute", "executes", "executing", "executed", "execution"},
	"execution": {"exec", "execute", "executes", "executing", "executed", "execution"},

	"spec":          {"spec", "specs", "specify", "specifies", "specified", "specification"},
	"specs":         {"spec", "specs", "specify", "specifies", "specified", "specification"},
	"specify":       {"spec", "specs", "specify", "specifies", "specified", "specification"},
	"specifies":     {"spec", "specs", "specify", "specifies", "specified", "specification"},
	"specified":     {"spec", "specs", "specify", "specifies", "specified", "specification"},
	"specification": {"spec", "specs", "specify", "specifies", "specified", "specification"},

	"init":           {"init", "initialize", "initializes", "initialized", "initialization"},
	"initialize":     {"init", "initialize", "initializes", "initialized", "initialization"},
	"initializes":    {"init", "initialize", "initializes", "initialized", "initialization"},
	"initialized":    {"init", "initialize", "initializes", "initialized", "initialization"},
	"initialization": {"init", "initialize", "initializes", "initialized", "initialization"},

	"serialize":     {"serialize", "serializes", "serializing", "serialized", "serialization", "serializer"},
	"serializes":    {"serialize", "serializes", "serializing", "serialized", "serialization", "serializer"},
	"serializing":   {"serialize", "serializes", "serializing", "serialized", "serialization", "serializer"},
	"serialized":    {"serialize", "serializes", "serializing", "serialized", "serialization", "serializer"},
	"serialization": {"serialize", "serializes", "serializing", "serialized", "serialization", "serializer"},
	"serializer":    {"serialize", "serializes", "serializing", "serialized", "serialization", "serializer"},

	"cluster":  {"cluster", "clusters"},
	"clusters": {"cluster", "clusters"},
	"node":     {"node", "nodes"},
	"nodes":    {"node", "nodes"},

	"endpoint":  {"endpoint", "endpoints"},
	"endpoints": {"endpoint", "endpoints"},

	"route":   {"route", "routes", "routing", "router"},
	"routes":  {"route", "routes", "routing", "router"},
	"routing": {"route", "routes", "routing", "router"},
	"router":  {"route", "routes", "routing", "router"},

	"api":  {"api", "apis"},
	"apis": {"api", "apis"},
	"url":  {"url", "urls"},
	"urls": {"url", "urls"},

	"schema":  {"schema", "schemas"},
	"schemas": {"schema", "schemas"},

	"template":  {"template", "templates"},
	"templates": {"template", "templates"},

	"session":  {"session", "sessions"},
	"sessions": {"session", "sessions"},

	"perm":        {"perm", "perms", "permission", "permissions"},
	"perms":       {"perm", "perms", "permission", "permissions"},
	"permission":  {"perm", "perms", "permission", "permissions"},
	"permissions": {"perm", "perms", "permission", "permissions"},

	"view":  {"view", "views"},
	"views": {"view", "views"},

	"handler":  {"handler", "handlers"},
	"handlers": {"handler", "handlers"},

	"middleware":  {"middleware", "middlewares"},
	"middlewares": {"middleware", "middlewares"},

	"provider":  {"provider", "providers"},
	"providers": {"provider", "providers"},

	"agent":  {"agent", "agents"},
	"agents": {"agent", "agents"},

	"policy":   {"policy", "policies"},
	"policies": {"policy", "policies"},

	"callback":  {"callback", "callbacks"},
	"callbacks": {"callback", "callbacks"},

	"pipeline":  {"pipeline", "pipelines"},
	"pipelines": {"pipeline", "pipelines"},

	"workflow":  {"workflow", "workflows"},
	"workflows": {"workflow", "workflows"},

	"cred":        {"cred", "creds", "credential", "credentials"},
	"creds":       {"cred", "creds", "credential", "credentials"},
	"credential":  {"cred", "creds", "credential", "credentials"},
	"credentials": {"cred", "creds", "credential", "credentials"},

	"secret":  {"secret", "secrets"},
	"secrets": {"secret", "secrets"},

	"var":       {"var", "vars", "variable", "variables"},
	"vars":      {"var", "vars", "variable", "variables"},
	"variable":  {"var", "vars", "variable", "variables"},
	"variables": {"var", "vars", "variable", "variables"},

	"attr":       {"attr", "attrs", "attribute", "attributes"},
	"attrs":      {"attr", "attrs", "attribute", "attributes"},
	"attribute":  {"attr", "attrs", "attribute", "attributes"},
	"attributes": {"attr", "attrs", "attribute", "attributes"},

	"instance":  {"instance", "instances"},
	"instances": {"instance", "instances"},

	"cls":     {"cls", "class", "classes"},
	"class":   {"cls", "class", "classes"},
	"classes": {"cls", "class", "classes"},

	"mod":     {"mod", "module", "modules"},
	"module":  {"mod", "module", "modules"},
	"modules": {"mod", "module", "modules"},

	"pkg":      {"pkg", "package", "packages"},
	"package":  {"pkg", "package", "packages"},
	"packages": {"pkg", "package", "packages"},

	"dir":         {"dir", "dirs", "directory", "directories"},
	"dirs":        {"dir", "dirs", "directory", "directories"},
	"directory":   {"dir", "dirs", "directory", "directories"},
	"directories": {"dir", "dirs", "directory", "directories"},

	"framework":  {"framework", "frameworks"},
	"frameworks": {"framework", "frameworks"},

	"lib":       {"lib", "libs", "library", "libraries"},
	"libs":      {"lib", "libs", "library", "libraries"},
	"library":   {"lib", "libs", "library", "libraries"},
	"libraries": {"lib", "libs", "library", "libraries"},

	"dep":          {"dep", "deps", "dependency", "dependencies"},
	"deps":         {"dep", "deps", "dependency", "dependencies"},
	"dependency":   {"dep", "deps", "dependency", "dependencies"},
	"dependencies": {"dep", "deps", "dependency", "dependencies"},

	"cmd":      {"cmd", "command", "commands"},
	"command":  {"cmd", "command", "commands"},
	"commands": {"cmd", "command", "commands"},

	"ver":      {"ver", "version", "versions"},
	"version":  {"ver", "version", "versions"},
	"versions": {"ver", "version", "versions"},

	"setting":  {"setting", "settings"},
	"settings": {"setting", "settings"},

	"opt":     {"opt", "option", "options"},
	"option":  {"opt", "option", "options"},
	"options": {"opt", "option", "options"},

	"field":  {"field", "fields"},
	"fields": {"field", "fields"},

	"state":  {"state", "states"},
	"states": {"state", "states"},

	"ctx":      {"ctx", "context", "contexts"},
	"context":  {"ctx", "context", "contexts"},
	"contexts": {"ctx", "context", "contexts"},

	"conn":        {"conn", "connection", "connections"},
	"connection":  {"conn", "connection", "connections"},
	"connections": {"conn", "connection", "connections"},
})

func buildSynonymSet(raw map[string][]string) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(raw))
	for term, group := range raw {
		set := make(map[string]struct{}, len(group))
		for _, g := range group {
			set[g] = struct{}{}
		}
		out[term] = set
	}
	return out
}

// SynonymExpander expands a term to its equivalence class, falling
// back to a singleton set of the term itself when no entry exists.
type SynonymExpander struct {
	synonyms map[string]map[string]struct{}
}

// NewSynonymExpander builds an expander over syn, or the package
// default table when syn is nil.
func NewSynonymExpander(syn map[string]map[string]struct{}) *SynonymExpander {
	if syn == nil {
		syn = defaultSynonyms
	}
	return &SynonymExpander{synonyms: syn}
}

// Expand returns term's equivalence class, always including term
// itself.
func (e *SynonymExpander) Expand(term string) map[string]struct{} {
	normalized := strings.ToLower(term)
	if group, ok := e.synonyms[normalized]; ok {
		out := make(map[string]struct{}, len(group)+1)
		for g := range group {
			out[g] = struct{}{}
		}
		out[normalized] = struct{}{}
		return out
	}
	return map[string]struct{}{normalized: {}}
}

// ExpandTerms expands every term in order, returning three views:
// expandedSet, the full union used to probe the bloom filter and fetch
// postings; orderedTerms, the original query tokens deduplicated in
// first-occurrence order, used for the phrase bonus (which must match
// the literal query wording, not its synonym expansions); and
// highlightTerms, orderedTerms followed by each term's synonym
// expansions (sorted for determinism), deduplicated in first-occurrence
// order. highlightTerms is what spec §4.D step 2's match_trace
// query_variant and step 7's snippet highlighting are built from, so a
// query like "async" reports and highlights "asynchronous" matches too.
func (e *SynonymExpander) ExpandTerms(terms []string) (expandedSet map[string]struct{}, orderedTerms []string, highlightTerms []string) {
	expandedSet = make(map[string]struct{})
	seen := make(map[string]struct{}, len(terms))
	highlightSeen := make(map[string]struct{})
	for _, t := range terms {
		normalized := strings.ToLower(t)
		if _, dup := seen[normalized]; !dup {
			seen[normalized] = struct{}{}
			orderedTerms = append(orderedTerms, normalized)
		}

		group := e.Expand(normalized)
		expansions := make([]string, 0, len(group))
		for g := range group {
			expandedSet[g] = struct{}{}
			expansions = append(expansions, g)
		}
		sort.Strings(expansions)

		if _, dup := highlightSeen[normalized]; !dup {
			highlightSeen[normalized] = struct{}{}
			highlightTerms = append(highlightTerms, normalized)
		}
		for _, g := range expansions {
			if _, dup := highlightSeen[g]; !dup {
				highlightSeen[g] = struct{}{}
				highlightTerms = append(highlightTerms, g)
			}
		}
	}
	return expandedSet, orderedTerms, highlightTerms
}
