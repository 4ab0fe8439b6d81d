package graph

import (
	"github.com/graphql-go/graphql"
)

// NewSchema builds the executable schema around the resolver.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	roleEnum := graphql.NewEnum(graphql.EnumConfig{
		Name: "Role",
		Values: graphql.EnumValueConfigMap{
			"USER":  &graphql.EnumValueConfig{Value: "USER"},
			"ADMIN": &graphql.EnumValueConfig{Value: "ADMIN"},
		},
	})

	customerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Customer",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"email":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"role":         &graphql.Field{Type: roleEnum},
			"code":         &graphql.Field{Type: graphql.Int},
			"emailConfirm": &graphql.Field{Type: graphql.Boolean},
			"createdAt":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	authResponseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthResponse",
		Fields: graphql.Fields{
			"accessToken":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"refreshToken": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"customer":     &graphql.Field{Type: graphql.NewNonNull(customerType)},
		},
	})

	logoutResponseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LogoutResponse",
		Fields: graphql.Fields{
			"loggedOut": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})

	customersResponseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CustomersResponse",
		Fields: graphql.Fields{
			"totalCount":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"totalPages":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"currentPage": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"nextPage":    &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"customers":   &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(customerType))},
		},
	})

	signUpInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "SignUpInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"email":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"password": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"role":     &graphql.InputObjectFieldConfig{Type: roleEnum},
			// Accepted for compatibility; activation always starts
			// unconfirmed.
			"emailConfirm": &graphql.InputObjectFieldConfig{Type: graphql.Boolean, DefaultValue: false},
		},
	})

	signInInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "SignInInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"email":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"password": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	activateCodeInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ActivateCodeInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"email": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"code":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	paginationInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PaginationArgs",
		Fields: graphql.InputObjectConfigFieldMap{
			"limit":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
			"offset": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	searchInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CustomerSearchByInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"searchTerm": &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	updateCustomerInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UpdateCustomerInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"email": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"role":  &graphql.InputObjectFieldConfig{Type: roleEnum},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"customers": &graphql.Field{
				Type:        customersResponseType,
				Description: "Fetch list of customers",
				Args: graphql.FieldConfigArgument{
					"paginationArgs": &graphql.ArgumentConfig{Type: graphql.NewNonNull(paginationInput)},
					"searchBy":       &graphql.ArgumentConfig{Type: searchInput},
				},
				Resolve: r.operation("customers", r.resolveCustomers),
			},
			"customer": &graphql.Field{
				Type:        customerType,
				Description: "Fetch the current customer",
				Resolve:     r.operation("customer", r.resolveCustomer),
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"signUp": &graphql.Field{
				Type:        authResponseType,
				Description: "Sign up a customer",
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(signUpInput)},
				},
				Resolve: r.operation("signUp", r.resolveSignUp),
			},
			"signIn": &graphql.Field{
				Type:        authResponseType,
				Description: "Sign in a customer",
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(signInInput)},
				},
				Resolve: r.operation("signIn", r.resolveSignIn),
			},
			"confirmActivationCode": &graphql.Field{
				Type:        customerType,
				Description: "Confirm an activation code",
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(activateCodeInput)},
				},
				Resolve: r.operation("confirmActivationCode", r.resolveConfirmActivationCode),
			},
			"getNewTokens": &graphql.Field{
				Type:        authResponseType,
				Description: "Exchange a refresh token for a new token pair",
				Resolve:     r.operation("getNewTokens", r.resolveGetNewTokens),
			},
			"logOut": &graphql.Field{
				Type:        logoutResponseType,
				Description: "Log out a customer",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.operation("logOut", r.resolveLogOut),
			},
			"updateCustomer": &graphql.Field{
				Type:        customerType,
				Description: "Update a customer",
				Args: graphql.FieldConfigArgument{
					"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(updateCustomerInput)},
				},
				Resolve: r.operation("updateCustomer", r.resolveUpdateCustomer),
			},
			"deleteCustomer": &graphql.Field{
				Type:        customerType,
				Description: "Soft delete a customer",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.operation("deleteCustomer", r.resolveDeleteCustomer),
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}
