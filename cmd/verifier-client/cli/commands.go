package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/samvad-hq/vlei-verifier-client/pkg/publishers"
	"github.com/samvad-hq/vlei-verifier-client/pkg/verifier"
	"github.com/spf13/cobra"
)

// result is the JSON shape printed for every verifier response.
type result struct {
	Code       int    `json:"code"`
	Message    string `json:"message,omitempty"`
	HasMessage bool   `json:"has_message"`
	Body       any    `json:"body"`
	Raw        string `json:"raw,omitempty"`
}

// call runs op through the runner, prints the response and releases the session.
func (s *session) call(cmd *cobra.Command, operation, identifier string, op func(ctx context.Context, c *verifier.Client) (*verifier.Response, error)) error {
	defer s.close()

	res, err := s.runner.Run(cmd.Context(), operation, identifier, op)
	if err != nil {
		return err
	}

	out := result{
		Code:       res.Code,
		Message:    res.Message,
		HasMessage: res.HasMessage,
		Body:       res.Body,
	}
	if res.Body == nil && len(res.Raw) > 0 {
		out.Raw = string(res.Raw)
	}
	return s.print(cmd.OutOrStdout(), out)
}

func (s *session) print(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if s.opts.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func authorizationCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "authorization AID",
		Short: "Check the authorization status of an AID.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aid := args[0]
			return s.call(cmd, publishers.OperationAuthorization, aid, func(ctx context.Context, c *verifier.Client) (*verifier.Response, error) {
				return c.CheckAuthorization(ctx, aid)
			})
		},
	}
}

func presentationCmd(s *session) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "presentation SAID",
		Short: "Present a CESR encoded credential under its SAID.",
		Long:  "Present a CESR encoded credential. The payload is read from --file, or from stdin when --file is \"-\" or omitted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			said := args[0]
			vlei, err := readPayload(cmd.InOrStdin(), file)
			if err != nil {
				s.close()
				return err
			}
			return s.call(cmd, publishers.OperationPresentation, said, func(ctx context.Context, c *verifier.Client) (*verifier.Response, error) {
				return c.Presentation(ctx, said, vlei)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "file holding the CESR credential")
	return cmd
}

func verifyHeadersCmd(s *session) *cobra.Command {
	var sig, data string
	cmd := &cobra.Command{
		Use:   "verify-headers AID",
		Short: "Verify signed request headers for an AID.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aid := args[0]
			return s.call(cmd, publishers.OperationVerifyHeaders, aid, func(ctx context.Context, c *verifier.Client) (*verifier.Response, error) {
				return c.VerifySignedHeaders(ctx, aid, sig, data)
			})
		},
	}
	cmd.Flags().StringVar(&sig, "sig", "", "signature over the serialized headers")
	cmd.Flags().StringVar(&data, "data", "", "serialized signed headers")
	_ = cmd.MarkFlagRequired("sig")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func verifySignatureCmd(s *session) *cobra.Command {
	var signature, signer, digest string
	cmd := &cobra.Command{
		Use:   "verify-signature",
		Short: "Verify a raw signature over a digest.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.call(cmd, publishers.OperationVerifySig, signer, func(ctx context.Context, c *verifier.Client) (*verifier.Response, error) {
				return c.VerifySignature(ctx, signature, signer, digest)
			})
		},
	}
	cmd.Flags().StringVar(&signature, "signature", "", "CESR encoded signature")
	cmd.Flags().StringVar(&signer, "signer", "", "AID of the signer")
	cmd.Flags().StringVar(&digest, "digest", "", "non-prefixed digest that was signed")
	_ = cmd.MarkFlagRequired("signature")
	_ = cmd.MarkFlagRequired("signer")
	_ = cmd.MarkFlagRequired("digest")
	return cmd
}

func addRootOfTrustCmd(s *session) *cobra.Command {
	var file, oobi string
	cmd := &cobra.Command{
		Use:   "add-root-of-trust AID",
		Short: "Register a root-of-trust credential and its OOBI.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aid := args[0]
			vlei, err := readPayload(cmd.InOrStdin(), file)
			if err != nil {
				s.close()
				return err
			}
			return s.call(cmd, publishers.OperationAddRootOfTrust, aid, func(ctx context.Context, c *verifier.Client) (*verifier.Response, error) {
				return c.AddRootOfTrust(ctx, aid, vlei, oobi)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "file holding the CESR credential")
	cmd.Flags().StringVar(&oobi, "oobi", "", "OOBI URL of the root of trust")
	_ = cmd.MarkFlagRequired("oobi")
	return cmd
}

func statusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the verifier status document.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.call(cmd, publishers.OperationStatus, "", func(ctx context.Context, c *verifier.Client) (*verifier.Response, error) {
				return c.Status(ctx)
			})
		},
	}
}

func resolveCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve AID",
		Short: "Show which verifier serves authorization checks for an AID.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer s.close()
			aid := args[0]
			base, err := s.runner.Client().ResolveBaseURL(cmd.Context(), aid)
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}
			return s.print(cmd.OutOrStdout(), map[string]string{
				"aid":          aid,
				"verifier_url": base,
			})
		},
	}
}

func readPayload(stdin io.Reader, file string) (string, error) {
	var (
		raw []byte
		err error
	)
	if file == "" || file == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return string(raw), nil
}
