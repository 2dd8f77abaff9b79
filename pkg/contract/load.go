package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var httpMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

var templateParam = regexp.MustCompile(`\{([^}/]+)\}`)

// Load reads the contract from a file path or an http(s) URL, checks its
// internal consistency and compiles every schema it declares.
func Load(ctx context.Context, source string, log *zap.Logger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("loading contract", zap.String("source", source))

	b, err := readSource(ctx, source)
	if err != nil {
		return nil, gwerr.ContractLoad("read %s", source).WithCause(err)
	}
	reg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	for _, op := range reg.ops {
		if len(op.Backends) == 0 {
			log.Warn("operation has no backend reference; requests will fail",
				zap.String("method", op.Method), zap.String("path", op.Path))
		}
	}
	log.Info("contract loaded", zap.String("source", source), zap.Int("operations", len(reg.ops)))
	return reg, nil
}

// Parse builds a Registry from YAML or JSON bytes.
func Parse(b []byte) (*Registry, error) {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, gwerr.ContractLoad("document is not valid YAML or JSON").WithCause(err)
	}
	root, ok := normalize(doc).(map[string]any)
	if !ok {
		return nil, gwerr.ContractLoad("document root must be an object")
	}
	// Round-trip through JSON so Raw only holds JSON-native values.
	if jb, err := json.Marshal(root); err == nil {
		var cleaned map[string]any
		if err := json.Unmarshal(jb, &cleaned); err == nil {
			root = cleaned
		}
	}

	p := &parser{root: root, components: toJSONSchema(root["components"])}
	ops, err := p.parse()
	if err != nil {
		return nil, err
	}
	reg := &Registry{raw: root}
	reg.index(ops)
	return reg, nil
}

func readSource(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()
		if res.StatusCode < 200 || res.StatusCode > 299 {
			return nil, fmt.Errorf("fetch %s: %s", source, res.Status)
		}
		return io.ReadAll(res.Body)
	}
	return os.ReadFile(source)
}

type parser struct {
	root       map[string]any
	components any
}

func (p *parser) parse() ([]*Operation, error) {
	version, _ := p.root["openapi"].(string)
	if !strings.HasPrefix(version, "3.") {
		return nil, gwerr.ContractLoad("unsupported openapi version %q (3.x required)", version)
	}
	paths, ok := p.root["paths"].(map[string]any)
	if !ok || len(paths) == 0 {
		return nil, gwerr.ContractLoad("contract declares no paths")
	}

	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var ops []*Operation
	for _, path := range keys {
		if !strings.HasPrefix(path, "/") {
			return nil, gwerr.ContractLoad("path %q must start with /", path)
		}
		item, err := p.deref(paths[path])
		if err != nil {
			return nil, gwerr.ContractLoad("path %s: %v", path, err)
		}
		pathOps, err := p.parsePathItem(path, item)
		if err != nil {
			return nil, err
		}
		ops = append(ops, pathOps...)
	}
	return ops, nil
}

func (p *parser) parsePathItem(path string, item map[string]any) ([]*Operation, error) {
	shared, err := p.parseParameters(item["parameters"])
	if err != nil {
		return nil, gwerr.ContractLoad("path %s: %v", path, err)
	}
	pathBackends, err := stringList(item[BackendsAttr])
	if err != nil {
		return nil, gwerr.ContractLoad("path %s: %s: %v", path, BackendsAttr, err)
	}
	pathHandler, err := optString(item[HandlerAttr])
	if err != nil {
		return nil, gwerr.ContractLoad("path %s: %s: %v", path, HandlerAttr, err)
	}

	var out []*Operation
	for _, m := range httpMethods {
		rawOp, ok := item[m]
		if !ok {
			continue
		}
		method := strings.ToUpper(m)
		opMap, err := p.deref(rawOp)
		if err != nil {
			return nil, gwerr.ContractLoad("%s %s: %v", method, path, err)
		}
		op, err := p.parseOperation(path, method, opMap, shared)
		if err != nil {
			return nil, gwerr.ContractLoad("%s %s: %v", method, path, err)
		}
		if len(op.Backends) == 0 {
			op.Backends = pathBackends
		}
		if op.HandlerName == "" {
			op.HandlerName = pathHandler
		}
		out = append(out, op)
	}
	return out, nil
}

func (p *parser) parseOperation(path, method string, m map[string]any, shared []Parameter) (*Operation, error) {
	own, err := p.parseParameters(m["parameters"])
	if err != nil {
		return nil, err
	}
	op := &Operation{Path: path, Method: method, Parameters: mergeParameters(shared, own)}

	declared := map[string]bool{}
	for _, prm := range op.Parameters {
		if prm.In == InPath {
			declared[prm.Name] = true
		}
	}
	for _, match := range templateParam.FindAllStringSubmatch(path, -1) {
		if !declared[match[1]] {
			return nil, fmt.Errorf("path parameter %q is not declared", match[1])
		}
	}

	if rb, ok := m["requestBody"]; ok {
		body, err := p.parseRequestBody(rb)
		if err != nil {
			return nil, fmt.Errorf("requestBody: %w", err)
		}
		op.RequestBody = body
	}

	op.Responses = map[string]*Response{}
	if rs, ok := m["responses"].(map[string]any); ok {
		for code, raw := range rs {
			resp, err := p.parseResponse(raw)
			if err != nil {
				return nil, fmt.Errorf("response %s: %w", code, err)
			}
			op.Responses[strings.ToUpper(code)] = resp
		}
	}

	if op.Backends, err = stringList(m[BackendsAttr]); err != nil {
		return nil, fmt.Errorf("%s: %w", BackendsAttr, err)
	}
	if op.HandlerName, err = optString(m[HandlerAttr]); err != nil {
		return nil, fmt.Errorf("%s: %w", HandlerAttr, err)
	}
	return op, nil
}

func (p *parser) parseParameters(raw any) ([]Parameter, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("parameters must be a list")
	}
	out := make([]Parameter, 0, len(list))
	for i, x := range list {
		m, err := p.deref(x)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		name, _ := m["name"].(string)
		in, _ := m["in"].(string)
		if name == "" {
			return nil, fmt.Errorf("parameter %d: name is required", i)
		}
		switch in {
		case InQuery, InPath, InHeader, InCookie:
		default:
			return nil, fmt.Errorf("parameter %q: invalid location %q", name, in)
		}
		required, _ := m["required"].(bool)
		prm := Parameter{Name: name, In: in, Required: required || in == InPath}
		if rs, ok := m["schema"]; ok {
			s, err := compileSchema(rs, p.components)
			if err != nil {
				return nil, fmt.Errorf("parameter %q schema: %w", name, err)
			}
			prm.Schema = s
			if resolved, err := p.deref(rs); err == nil {
				prm.Type = schemaType(resolved)
				if items, err := p.deref(resolved["items"]); err == nil {
					prm.ItemType = schemaType(items)
				}
			}
		}
		out = append(out, prm)
	}
	return out, nil
}

func (p *parser) parseRequestBody(raw any) (*RequestBody, error) {
	m, err := p.deref(raw)
	if err != nil {
		return nil, err
	}
	required, _ := m["required"].(bool)
	rb := &RequestBody{Required: required}
	if s, ok := jsonMediaSchema(m["content"]); ok {
		if rb.Schema, err = compileSchema(s, p.components); err != nil {
			return nil, err
		}
	}
	return rb, nil
}

func (p *parser) parseResponse(raw any) (*Response, error) {
	m, err := p.deref(raw)
	if err != nil {
		return nil, err
	}
	desc, _ := m["description"].(string)
	resp := &Response{Description: desc}
	if s, ok := jsonMediaSchema(m["content"]); ok {
		if resp.Schema, err = compileSchema(s, p.components); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// deref follows local $ref chains and returns the target object.
func (p *parser) deref(v any) (map[string]any, error) {
	for hop := 0; hop < 16; hop++ {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected an object, got %T", v)
		}
		ref, ok := m["$ref"].(string)
		if !ok {
			return m, nil
		}
		target, err := resolvePointer(p.root, ref)
		if err != nil {
			return nil, err
		}
		v = target
	}
	return nil, fmt.Errorf("$ref chain too deep")
}

func resolvePointer(root map[string]any, ref string) (any, error) {
	if !strings.HasPrefix(ref, "#/") {
		return nil, fmt.Errorf("external $ref %q is not supported", ref)
	}
	var cur any = root
	for _, part := range strings.Split(ref[2:], "/") {
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unresolvable $ref %q", ref)
		}
		if cur, ok = m[part]; !ok {
			return nil, fmt.Errorf("unresolvable $ref %q", ref)
		}
	}
	return cur, nil
}

// jsonMediaSchema picks application/json, then any +json media type.
func jsonMediaSchema(raw any) (any, bool) {
	content, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	pick := func(mt string) (any, bool) {
		media, ok := content[mt].(map[string]any)
		if !ok {
			return nil, false
		}
		s, ok := media["schema"]
		return s, ok
	}
	if s, ok := pick("application/json"); ok {
		return s, true
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasSuffix(k, "+json") || strings.HasSuffix(k, "/json") {
			if s, ok := pick(k); ok {
				return s, true
			}
		}
	}
	return nil, false
}

// mergeParameters overlays operation parameters on path-level ones, keyed by (name, in).
func mergeParameters(shared, own []Parameter) []Parameter {
	out := make([]Parameter, 0, len(shared)+len(own))
	overridden := map[string]bool{}
	for _, p := range own {
		overridden[p.In+"/"+p.Name] = true
	}
	for _, p := range shared {
		if !overridden[p.In+"/"+p.Name] {
			out = append(out, p)
		}
	}
	return append(out, own...)
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t = strings.TrimSpace(t); t == "" {
			return nil, nil
		}
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			s, ok := x.(string)
			if !ok {
				return nil, fmt.Errorf("expected string entries, got %T", x)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a string or a list of strings, got %T", v)
	}
}

func optString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	default:
		return "", fmt.Errorf("expected a string, got %T", v)
	}
}

// normalize converts YAML's generic maps into JSON-shaped maps. Response
// codes written unquoted arrive as integer keys.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = normalize(x)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[fmt.Sprint(k)] = normalize(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = normalize(x)
		}
		return out
	default:
		return v
	}
}
