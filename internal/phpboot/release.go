package phpboot

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

const (
	DefaultMetadataURL  = "https://update.pmmp.io/api"
	DefaultChannel      = "stable"
	DefaultArtifactName = "PHP-{{.version}}-{{.platform}}.tar.gz"
	DefaultArtifactURL  = "https://jenkins.pmmp.io/job/PHP-{{.version}}-Aggregate/lastSuccessfulBuild/artifact/{{.filename}}"
)

// Release describes a downloadable runtime build. It is never cached.
type Release struct {
	Version  string
	Platform string
	Filename string
	URL      string
}

// ReleaseLocator finds the current release on a metadata channel.
type ReleaseLocator struct {
	Downloader *Downloader

	// MetadataURL defaults to DefaultMetadataURL. Channel defaults to DefaultChannel.
	MetadataURL string
	Channel     string

	// ArtifactName and ArtifactURL are templates with the vars version, platform and (URL only) filename.
	ArtifactName string
	ArtifactURL  string
}

type releaseMetadata struct {
	PHPVersion string `json:"php_version"`
}

func (r *ReleaseLocator) metadataURL() (string, error) {
	metadataURL := r.MetadataURL
	if metadataURL == "" {
		metadataURL = DefaultMetadataURL
	}
	channel := r.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	u, err := url.Parse(metadataURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("channel", channel)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// LatestStableVersion returns the php_version advertised on the configured channel.
func (r *ReleaseLocator) LatestStableVersion(ctx context.Context) (string, error) {
	metadataURL, err := r.metadataURL()
	if err != nil {
		return "", err
	}
	dl := r.Downloader
	if dl == nil {
		dl = &Downloader{}
	}
	var meta releaseMetadata
	err = dl.FetchJSON(ctx, metadataURL, &meta)
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(meta.PHPVersion)
	if version == "" {
		return "", &MetadataParseError{URL: metadataURL, Err: errors.New("php_version is missing")}
	}
	return version, nil
}

// ResolveRelease builds the Release for a version on an artifact platform.
func (r *ReleaseLocator) ResolveRelease(version, platform string) (*Release, error) {
	nameTmpl := r.ArtifactName
	if nameTmpl == "" {
		nameTmpl = DefaultArtifactName
	}
	urlTmpl := r.ArtifactURL
	if urlTmpl == "" {
		urlTmpl = DefaultArtifactURL
	}
	vars := map[string]string{
		"version":  version,
		"platform": platform,
	}
	filename, err := executeTemplate(nameTmpl, vars)
	if err != nil {
		return nil, err
	}
	vars["filename"] = filename
	artifactURL, err := executeTemplate(urlTmpl, vars)
	if err != nil {
		return nil, err
	}
	return &Release{
		Version:  version,
		Platform: platform,
		Filename: filename,
		URL:      artifactURL,
	}, nil
}
