// Command galleryctl drives a running gallery server from the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/notes-bin/gallery/internal/auth"
	"github.com/notes-bin/gallery/internal/client"
	"github.com/notes-bin/gallery/internal/gallery"
	"github.com/notes-bin/gallery/internal/model"

	flag "github.com/spf13/pflag"
)

const usage = `usage: galleryctl [--server URL] [--token TOKEN] <command> [flags]

commands:
  list      list images (--filter, --sort newest|oldest|name|size)
  show      show one image: show <id>
  upload    upload files: upload <file>...
  delete    delete an image: delete <id> [--yes]
  download  save an image under its original name: download <id> [-o dir]
  token     sign a write token: token --secret S [--subject s] [--ttl 24h]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "galleryctl:", err)
		os.Exit(1)
	}
}

type cli struct {
	ctrl   *gallery.Controller
	stdin  *bufio.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("galleryctl", flag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	server := global.StringP("server", "s", envOr("GALLERY_SERVER", "http://localhost:3000"), "gallery base URL")
	token := global.StringP("token", "t", os.Getenv("GALLERY_TOKEN"), "bearer token for upload and delete")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	command, rest := global.Arg(0), global.Args()[1:]
	if command == "token" {
		return runToken(rest, stdout, stderr)
	}

	var opts []client.Option
	if *token != "" {
		opts = append(opts, client.WithToken(*token))
	}
	notifier := gallery.NewNotifier(gallery.DefaultNoticeTTL, func(n gallery.Notice) {
		fmt.Fprintf(stderr, "[%s] %s\n", n.Kind, n.Message)
	})
	c := &cli{
		ctrl:   gallery.NewController(client.New(*server, opts...), notifier),
		stdin:  bufio.NewReader(stdin),
		stdout: stdout,
		stderr: stderr,
	}

	switch command {
	case "list":
		return c.list(ctx, rest)
	case "show":
		return c.show(ctx, rest)
	case "upload":
		return c.upload(ctx, rest)
	case "delete":
		return c.remove(ctx, rest)
	case "download":
		return c.download(ctx, rest)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (c *cli) list(ctx context.Context, args []string) error {
	fs := c.flags("list")
	filter := fs.StringP("filter", "f", "", "case-insensitive name filter")
	sortFlag := fs.String("sort", string(gallery.SortNewest), "newest, oldest, name or size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mode, err := gallery.ParseSortMode(*sortFlag)
	if err != nil {
		return err
	}
	if err := c.ctrl.Refresh(ctx); err != nil {
		return err
	}
	c.ctrl.SetFilter(*filter)
	c.ctrl.SetSort(mode)

	visible := c.ctrl.Visible()
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tTYPE\tUPLOADED")
	for _, img := range visible {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", img.ID, img.OriginalName, formatSize(img.Size), img.MimeType,
			img.UploadedAt.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s (%d shown)\n", countLabel(c.ctrl.Count()), len(visible))
	return nil
}

func (c *cli) show(ctx context.Context, args []string) error {
	fs := c.flags("show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := imageID(fs)
	if err != nil {
		return err
	}
	if err := c.ctrl.Refresh(ctx); err != nil {
		return err
	}
	img, err := c.ctrl.OpenDetail(id)
	if err != nil {
		return err
	}
	defer c.ctrl.CloseDetail()
	printDetail(c.stdout, img)
	return nil
}

func (c *cli) upload(ctx context.Context, args []string) error {
	fs := c.flags("upload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("upload needs at least one file")
	}
	var failed int
	for _, path := range fs.Args() {
		img, err := c.uploadFile(ctx, path)
		if err != nil {
			failed++
			continue
		}
		fmt.Fprintf(c.stdout, "%d\t%s\n", img.ID, img.Path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, fs.NArg())
	}
	return nil
}

func (c *cli) uploadFile(ctx context.Context, path string) (*model.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		c.ctrl.Notifier().Error(err.Error())
		return nil, err
	}
	defer f.Close()

	mimeType, err := detectType(f, path)
	if err != nil {
		c.ctrl.Notifier().Error(err.Error())
		return nil, err
	}
	return c.ctrl.Upload(ctx, filepath.Base(path), mimeType, f)
}

func (c *cli) remove(ctx context.Context, args []string) error {
	fs := c.flags("delete")
	yes := fs.BoolP("yes", "y", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := imageID(fs)
	if err != nil {
		return err
	}
	if err := c.ctrl.Refresh(ctx); err != nil {
		return err
	}
	err = c.ctrl.Delete(ctx, id, func(img model.Image) bool {
		return *yes || c.confirm(fmt.Sprintf("Delete %s (#%d)?", img.OriginalName, img.ID))
	})
	if errors.Is(err, gallery.ErrCancelled) {
		fmt.Fprintln(c.stdout, "Cancelled")
		return nil
	}
	return err
}

func (c *cli) download(ctx context.Context, args []string) error {
	fs := c.flags("download")
	dir := fs.StringP("output", "o", ".", "target directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := imageID(fs)
	if err != nil {
		return err
	}
	if err := c.ctrl.Refresh(ctx); err != nil {
		return err
	}
	target, err := c.ctrl.Download(ctx, id, *dir)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, target)
	return nil
}

func runToken(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	secret := fs.String("secret", os.Getenv("GALLERY_JWT_SECRET"), "signing secret (jwt_secret of the server)")
	subject := fs.String("subject", "galleryctl", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	token, err := auth.NewAuth(*secret).GenerateToken(*subject, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) confirm(prompt string) bool {
	fmt.Fprintf(c.stdout, "%s [y/N] ", prompt)
	answer, _ := c.stdin.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func imageID(fs *flag.FlagSet) (int64, error) {
	if fs.NArg() != 1 {
		return 0, fmt.Errorf("%s needs exactly one image id", fs.Name())
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid image id %q", fs.Arg(0))
	}
	return id, nil
}

// detectType prefers the extension and falls back to sniffing the content.
func detectType(f *os.File, path string) (string, error) {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		if base, _, err := mime.ParseMediaType(t); err == nil {
			return base, nil
		}
		return t, nil
	}
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func printDetail(w io.Writer, img model.Image) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", img.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", img.OriginalName)
	fmt.Fprintf(tw, "Stored as:\t%s\n", img.Filename)
	fmt.Fprintf(tw, "Path:\t/%s\n", img.Path)
	fmt.Fprintf(tw, "Size:\t%s\n", formatSize(img.Size))
	fmt.Fprintf(tw, "Type:\t%s\n", img.MimeType)
	fmt.Fprintf(tw, "Uploaded:\t%s\n", img.UploadedAt.Local().Format(time.RFC1123))
	tw.Flush()
}

func countLabel(n int) string {
	if n == 1 {
		return "1 image"
	}
	return fmt.Sprintf("%d images", n)
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
