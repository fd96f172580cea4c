/*
Copyright © 2025 Mulga Defense Corporation

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/mulgadc/ebsgrow/ebsgrow/gateway"
	"github.com/spf13/cobra"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run as an AWS Lambda function behind API Gateway",
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(false)
		defer a.Close()

		gateway.ConfigureLogging(a.Config.Gateway.Debug, a.Config.Gateway.DisableLogging)
		lambda.Start(a.Gateway.HandleLambda)
	},
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
}
