package vespa

import (
	"archive/zip"
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

//go:embed schemas/services.xml schemas/filing_bm25.sd schemas/filing_hybrid.sd.tmpl
var schemaFS embed.FS

var _ driven.VespaDeployer = (*Deployer)(nil)

// Deployer manages the filing schema on a Vespa cluster through the
// deploy and content APIs.
type Deployer struct {
	httpClient *http.Client
}

func NewDeployer() *Deployer {
	return &Deployer{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// validateEndpoint checks the endpoint is a well-formed http(s) URL and
// strips any trailing slash.
func validateEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("endpoint is required")
	}
	parsed, err := neturl.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("endpoint must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("endpoint has no host")
	}
	return strings.TrimSuffix(endpoint, "/"), nil
}

// get performs a GET and returns the body. A 404 comes back as
// (nil, nil) so callers can treat missing resources as absence.
func (d *Deployer) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: %s", resp.Status, string(body))
	}
	return body, nil
}

// Deploy builds the application package and submits it through
// prepareandactivate. With an existing package the filing schema is
// merged in; without one the embedded dev services.xml is used.
func (d *Deployer) Deploy(ctx context.Context, endpoint string, embeddingDim *int, existingPkg *driven.AppPackage) (*domain.VespaDeployResult, error) {
	endpoint, err := validateEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	mode := domain.VespaSchemaModeBM25
	if embeddingDim != nil && *embeddingDim > 0 {
		mode = domain.VespaSchemaModeHybrid
	}
	schema, err := renderSchema(mode, safeDeref(embeddingDim))
	if err != nil {
		return nil, fmt.Errorf("render schema: %w", err)
	}

	var zipData []byte
	if existingPkg != nil {
		zipData, err = mergedPackage(existingPkg, schema)
	} else {
		zipData, err = devPackage(schema)
	}
	if err != nil {
		return nil, fmt.Errorf("build app package: %w", err)
	}

	deployURL := endpoint + "/application/v2/tenant/default/prepareandactivate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deployURL, bytes.NewReader(zipData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/zip")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deployment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("deployment failed with status %s: %s", resp.Status, string(body))
	}

	version := fmt.Sprintf("v1-%s", mode)
	if embeddingDim != nil {
		version = fmt.Sprintf("v1-%s-dim%d", mode, *embeddingDim)
	}
	return &domain.VespaDeployResult{
		Success:       true,
		SchemaMode:    mode,
		EmbeddingDim:  safeDeref(embeddingDim),
		SchemaVersion: version,
		Upgraded:      false,
		Message:       fmt.Sprintf("Deployed %s schema", mode),
	}, nil
}

// FetchAppPackage downloads the currently deployed application package,
// or returns nil when no application is deployed.
func (d *Deployer) FetchAppPackage(ctx context.Context, endpoint string) (*driven.AppPackage, error) {
	endpoint = strings.TrimSuffix(endpoint, "/")
	baseURL := endpoint + "/application/v2/tenant/default/application/default/environment/default/region/default/instance/default/content"

	listing, err := d.get(ctx, baseURL+"/")
	if err != nil {
		return nil, fmt.Errorf("list app content: %w", err)
	}
	if listing == nil {
		return nil, nil
	}

	pkg := &driven.AppPackage{Schemas: make(map[string]string)}

	services, err := d.get(ctx, baseURL+"/services.xml")
	if err != nil {
		return nil, fmt.Errorf("fetch services.xml: %w", err)
	}
	pkg.ServicesXML = string(services)

	// hosts.xml only exists on multi-node deployments
	if hosts, err := d.get(ctx, baseURL+"/hosts.xml"); err == nil {
		pkg.HostsXML = string(hosts)
	}

	if err := d.fetchSchemas(ctx, baseURL, pkg); err != nil {
		return nil, err
	}

	pkg.ClusterInfo = parseClusterInfo(pkg)
	return pkg, nil
}

// fetchSchemas pulls every .sd file listed under schemas/ into the
// package. The content API returns the directory as a JSON array of
// URLs.
func (d *Deployer) fetchSchemas(ctx context.Context, baseURL string, pkg *driven.AppPackage) error {
	listing, err := d.get(ctx, baseURL+"/schemas/")
	if err != nil || len(listing) == 0 {
		return nil
	}
	var urls []string
	if json.Unmarshal(listing, &urls) != nil {
		return nil
	}
	for _, u := range urls {
		parts := strings.Split(u, "/")
		filename := parts[len(parts)-1]
		if !strings.HasSuffix(filename, ".sd") {
			continue
		}
		content, err := d.get(ctx, baseURL+"/schemas/"+filename)
		if err == nil && content != nil {
			pkg.Schemas[filename] = string(content)
		}
	}
	return nil
}

// GetSchemaInfo reports whether an application is deployed.
func (d *Deployer) GetSchemaInfo(ctx context.Context, endpoint string) (*driven.SchemaInfo, error) {
	endpoint = strings.TrimSuffix(endpoint, "/")
	body, err := d.get(ctx, endpoint+"/application/v2/tenant/default/application/default")
	if err != nil {
		return nil, fmt.Errorf("get schema info: %w", err)
	}
	return &driven.SchemaInfo{Deployed: body != nil}, nil
}

// HealthCheck verifies the cluster answers its state API.
func (d *Deployer) HealthCheck(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSuffix(endpoint, "/")
	body, err := d.get(ctx, endpoint+"/state/v1/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if body == nil {
		return fmt.Errorf("health endpoint not found")
	}
	return nil
}

// renderSchema produces the filing schema for the given mode. Hybrid
// mode instantiates the embedding tensor at the configured dimension.
func renderSchema(mode domain.VespaSchemaMode, embeddingDim int) ([]byte, error) {
	switch mode {
	case domain.VespaSchemaModeBM25:
		return schemaFS.ReadFile("schemas/filing_bm25.sd")

	case domain.VespaSchemaModeHybrid:
		tmplContent, err := schemaFS.ReadFile("schemas/filing_hybrid.sd.tmpl")
		if err != nil {
			return nil, err
		}
		tmpl, err := template.New("schema").Parse(string(tmplContent))
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		err = tmpl.Execute(&buf, struct{ EmbeddingDim int }{embeddingDim})
		if err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unknown schema mode: %s", mode)
	}
}

// packageWriter accumulates application package entries into a zip.
type packageWriter struct {
	buf bytes.Buffer
	zw  *zip.Writer
	err error
}

func newPackageWriter() *packageWriter {
	pw := &packageWriter{}
	pw.zw = zip.NewWriter(&pw.buf)
	return pw
}

func (pw *packageWriter) add(name string, content []byte) {
	if pw.err != nil {
		return
	}
	w, err := pw.zw.Create(name)
	if err != nil {
		pw.err = err
		return
	}
	_, pw.err = w.Write(content)
}

func (pw *packageWriter) finish() ([]byte, error) {
	if pw.err != nil {
		return nil, pw.err
	}
	if err := pw.zw.Close(); err != nil {
		return nil, err
	}
	return pw.buf.Bytes(), nil
}

// devPackage builds a self-contained package from the embedded
// services.xml, for single-node dev clusters we own outright.
func devPackage(schema []byte) ([]byte, error) {
	services, err := schemaFS.ReadFile("schemas/services.xml")
	if err != nil {
		return nil, err
	}
	pw := newPackageWriter()
	pw.add("services.xml", services)
	pw.add("schemas/filing.sd", schema)
	return pw.finish()
}

// mergedPackage rebuilds the deployed package with the filing schema
// added, leaving the cluster's other schemas untouched.
func mergedPackage(existing *driven.AppPackage, schema []byte) ([]byte, error) {
	pw := newPackageWriter()
	pw.add("services.xml", []byte(addFilingDocumentType(existing.ServicesXML)))
	if existing.HostsXML != "" {
		pw.add("hosts.xml", []byte(existing.HostsXML))
	}
	for filename, content := range existing.Schemas {
		if filename == "filing.sd" {
			continue
		}
		pw.add("schemas/"+filename, []byte(content))
	}
	pw.add("schemas/filing.sd", schema)
	return pw.finish()
}

var documentsOpenTag = regexp.MustCompile(`(<documents[^>]*>)`)

// addFilingDocumentType registers the filing document type in every
// content cluster that does not already carry it.
func addFilingDocumentType(servicesXML string) string {
	if strings.Contains(servicesXML, `type="filing"`) {
		return servicesXML
	}
	return documentsOpenTag.ReplaceAllString(servicesXML, `$1
            <document type="filing" mode="index"/>`)
}

// services.xml structure, reduced to the elements the cluster summary
// needs.
type servicesXMLDoc struct {
	XMLName    xml.Name        `xml:"services"`
	Content    []contentElem   `xml:"content"`
	Containers []containerElem `xml:"container"`
}

type contentElem struct {
	ID            string    `xml:"id,attr"`
	Redundancy    string    `xml:"redundancy"`
	MinRedundancy string    `xml:"min-redundancy"`
	Documents     docsElem  `xml:"documents"`
	Nodes         nodesElem `xml:"nodes"`
}

type docsElem struct {
	Document []docElem `xml:"document"`
}

type docElem struct {
	Type string `xml:"type,attr"`
	Mode string `xml:"mode,attr"`
}

type containerElem struct {
	ID          string    `xml:"id,attr"`
	DocumentAPI *struct{} `xml:"document-api"`
	Search      *struct{} `xml:"search"`
	HTTP        *httpElem `xml:"http"`
	Nodes       nodesElem `xml:"nodes"`
}

type httpElem struct {
	Server []serverElem `xml:"server"`
}

type serverElem struct {
	ID   string `xml:"id,attr"`
	Port int    `xml:"port,attr"`
}

type nodesElem struct {
	Node []nodeElem `xml:"node"`
}

type nodeElem struct {
	HostAlias       string `xml:"hostalias,attr"`
	DistributionKey string `xml:"distribution-key,attr"`
}

type hostsXMLDoc struct {
	XMLName xml.Name   `xml:"hosts"`
	Hosts   []hostElem `xml:"host"`
}

type hostElem struct {
	Name  string `xml:"name,attr"`
	Alias string `xml:"alias"`
}

// parseClusterInfo summarizes the package's topology for the admin
// surface. Malformed XML yields a partial summary rather than an error.
func parseClusterInfo(pkg *driven.AppPackage) *domain.VespaClusterInfo {
	info := &domain.VespaClusterInfo{
		ServicesXML: pkg.ServicesXML,
		HostsXML:    pkg.HostsXML,
	}

	var services servicesXMLDoc
	if xml.Unmarshal([]byte(pkg.ServicesXML), &services) == nil {
		for _, c := range services.Content {
			info.ContentClusters = append(info.ContentClusters, contentCluster(c))
		}
		for _, c := range services.Containers {
			info.ContainerClusters = append(info.ContainerClusters, containerCluster(c))
		}
	}

	var hosts hostsXMLDoc
	if pkg.HostsXML != "" && xml.Unmarshal([]byte(pkg.HostsXML), &hosts) == nil {
		for _, h := range hosts.Hosts {
			info.Hosts = append(info.Hosts, domain.VespaHost{
				Alias:    h.Alias,
				Hostname: h.Name,
			})
		}
	}

	for filename := range pkg.Schemas {
		info.Schemas = append(info.Schemas, strings.TrimSuffix(filename, ".sd"))
	}
	_, info.OurSchemaDeployed = pkg.Schemas["filing.sd"]

	return info
}

func contentCluster(c contentElem) domain.VespaContentCluster {
	cluster := domain.VespaContentCluster{ID: c.ID}
	if c.Redundancy != "" {
		cluster.Redundancy, _ = strconv.Atoi(c.Redundancy)
	} else if c.MinRedundancy != "" {
		cluster.Redundancy, _ = strconv.Atoi(c.MinRedundancy)
	}
	for _, n := range c.Nodes.Node {
		cluster.Nodes = append(cluster.Nodes, n.HostAlias)
	}
	for _, doc := range c.Documents.Document {
		cluster.Documents = append(cluster.Documents, doc.Type)
	}
	return cluster
}

func containerCluster(c containerElem) domain.VespaContainerCluster {
	cluster := domain.VespaContainerCluster{
		ID:       c.ID,
		HasFeed:  c.DocumentAPI != nil,
		HasQuery: c.Search != nil,
	}
	if c.HTTP != nil && len(c.HTTP.Server) > 0 {
		cluster.Port = c.HTTP.Server[0].Port
	}
	for _, n := range c.Nodes.Node {
		cluster.Nodes = append(cluster.Nodes, n.HostAlias)
	}
	return cluster
}

func safeDeref(ptr *int) int {
	if ptr == nil {
		return 0
	}
	return *ptr
}
