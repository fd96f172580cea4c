package policy

import (
	"fmt"

	"github.com/samber/lo"
)

// IAMAction converts a service and action name into "service:ActionName".
func IAMAction(service, action string) string {
	return service + ":" + action
}

var ec2Actions = []string{
	"DescribeVolumes",
	"CreateSnapshot",
	"DescribeSnapshots",
	"CreateTags",
	"ModifyVolume",
	"DescribeVolumesModifications",
}

var ssmActions = []string{
	"SendCommand",
	"ListCommands",
	"GetCommandInvocation",
}

// RequiredActions lists the IAM actions a run calls. SSM actions are only
// needed when guest extension is enabled.
func RequiredActions(guest bool) []string {
	actions := lo.Map(ec2Actions, func(a string, _ int) string { return IAMAction("ec2", a) })
	if guest {
		actions = append(actions, lo.Map(ssmActions, func(a string, _ int) string { return IAMAction("ssm", a) })...)
	}
	return actions
}

// DeclaredDocument is the execution role the deployment stack attaches to
// the function: its snapshot and log grants plus AmazonEC2FullAccess.
func DeclaredDocument(guest bool) PolicyDocument {
	doc := PolicyDocument{
		Version: Version,
		Statement: []Statement{
			{
				Sid:      "Logs",
				Effect:   "Allow",
				Action:   StringOrArr{"logs:*"},
				Resource: StringOrArr{"arn:aws:logs:*:*:*"},
			},
			{
				Sid:      "Describe",
				Effect:   "Allow",
				Action:   StringOrArr{"ec2:Describe*"},
				Resource: StringOrArr{"*"},
			},
			{
				Sid:    "Snapshots",
				Effect: "Allow",
				Action: StringOrArr{
					"ec2:CreateSnapshot",
					"ec2:DeleteSnapshot",
					"ec2:CreateTags",
					"ec2:ModifySnapshotAttribute",
					"ec2:ResetSnapshotAttribute",
				},
				Resource: StringOrArr{"*"},
			},
			{
				Sid:      "AmazonEC2FullAccess",
				Effect:   "Allow",
				Action:   StringOrArr{"ec2:*"},
				Resource: StringOrArr{"*"},
			},
		},
	}

	if guest {
		doc.Statement = append(doc.Statement, Statement{
			Sid:      "RunCommand",
			Effect:   "Allow",
			Action:   StringOrArr{"ssm:SendCommand", "ssm:ListCommands", "ssm:GetCommandInvocation"},
			Resource: StringOrArr{"*"},
		})
	}
	return doc
}

// Verify returns the actions doc does not allow on every resource
func Verify(doc PolicyDocument, actions []string) []string {
	docs := []PolicyDocument{doc}
	return lo.Filter(actions, func(action string, _ int) bool {
		return EvaluateAccess(action, "*", docs) != Allow
	})
}

// VerifyFile loads the document at path and fails when it denies any of
// the actions a run needs.
func VerifyFile(path string, guest bool) error {
	doc, err := LoadDocument(path)
	if err != nil {
		return fmt.Errorf("load policy %s: %w", path, err)
	}

	if denied := Verify(*doc, RequiredActions(guest)); len(denied) > 0 {
		return fmt.Errorf("policy %s does not allow %v", path, denied)
	}
	return nil
}
