package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ehealthMP/Omh-Schimmer/oauth1"
	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
	"github.com/spf13/cobra"
)

type signURLOptions struct {
	url             string
	clientID        string
	clientSecret    string
	token           string
	tokenSecret     string
	method          string
	signatureMethod string
	nonce           string
	timestamp       int64
}

func newSignURLCmd() *cobra.Command {
	var opts signURLOptions

	cmd := &cobra.Command{
		Use:   "sign-url",
		Short: "Sign a request URL with OAuth1 credentials and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return signURL(cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.url, "url", "", "absolute URL to sign, query parameters included")
	f.StringVar(&opts.clientID, "client-id", "", "consumer key")
	f.StringVar(&opts.clientSecret, "client-secret", "", "consumer secret")
	f.StringVar(&opts.token, "token", "", "oauth_token")
	f.StringVar(&opts.tokenSecret, "token-secret", "", "token secret")
	f.StringVar(&opts.method, "method", http.MethodGet, "GET prints the signed URL, POST prints the URL and the signed form body")
	f.StringVar(&opts.signatureMethod, "signature-method", oauth1.MethodHMACSHA1, "HMAC-SHA1 or PLAINTEXT")
	f.StringVar(&opts.nonce, "nonce", "", "fixed oauth_nonce")
	f.Int64Var(&opts.timestamp, "timestamp", 0, "fixed oauth_timestamp in unix seconds")
	_ = f.MarkHidden("nonce")
	_ = f.MarkHidden("timestamp")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("client-id")
	_ = cmd.MarkFlagRequired("client-secret")

	return cmd
}

func signURL(w io.Writer, opts signURLOptions) error {
	method, err := oauth1.SignatureMethodByName(strings.ToUpper(opts.signatureMethod))
	if err != nil {
		return err
	}

	signerOptions := []oauth1.SignerOption{oauth1.WithSignatureMethod(method)}
	if opts.nonce != "" {
		nonce := opts.nonce
		signerOptions = append(signerOptions, oauth1.WithNonceFunc(func() (string, error) { return nonce, nil }))
	}
	if opts.timestamp != 0 {
		ts := time.Unix(opts.timestamp, 0)
		signerOptions = append(signerOptions, oauth1.WithNowTime(func() time.Time { return ts }))
	}

	signer, err := oauth1.NewSigner(oauthmodel.ClientCredentials{
		ClientID:     opts.clientID,
		ClientSecret: opts.clientSecret,
	}, signerOptions...)
	if err != nil {
		return err
	}

	switch strings.ToUpper(opts.method) {
	case "", http.MethodGet:
		u, err := signer.SignURL(opts.url, opts.token, opts.tokenSecret, nil)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, u.String())
		return err
	case http.MethodPost:
		params, err := signer.Sign(http.MethodPost, opts.url, nil, opts.token, opts.tokenSecret, nil)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "POST %s\n%s\n", opts.url, params.Encode())
		return err
	default:
		return fmt.Errorf("unsupported method %s, expected GET or POST", opts.method)
	}
}
